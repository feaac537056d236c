package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Подача и просмотр сообщений - публичные маршруты
	reports := api.Group("/reports")
	{
		reports.POST("", h.createReport)
		reports.GET("", h.listReports)
	}

	// Чтение инцидентов публичное, операторские действия под API-ключом
	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/close", APIKeyAuthMiddleware(h.cfg, h.logger), h.closeIncident)
	}

	// Маршрут для статистики
	api.GET("/stats", APIKeyAuthMiddleware(h.cfg, h.logger), h.getStats)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
