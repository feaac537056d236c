package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	reportService   service.ReportService
	incidentService service.IncidentService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(reportService service.ReportService, incidentService service.IncidentService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportService:   reportService,
		incidentService: incidentService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// @Summary Submit an animal report
// @Description Submit a report of a dead or injured animal. The report is checked by the spam filter and, if accepted, matched into an incident.
// @Tags Reports
// @Accept json
// @Produce json
// @Param report body CreateReportRequest true "Report submission"
// @Success 201 {object} IngestResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 503 {object} map[string]string "Storage temporarily unavailable"
// @Router /reports [post]
func (h *Handler) createReport(c *gin.Context) {
	var input CreateReportRequest
	log := h.logger.WithField("method", "createReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := service.IdentityContext{
		SourceAddr:  c.ClientIP(),
		ClientAgent: c.Request.UserAgent(),
	}

	report, incident, err := h.reportService.Ingest(c.Request.Context(), DTOToReportInput(input), identity)
	if err != nil {
		log.WithError(err).Error("Failed to ingest report in service")
		if errors.Is(err, service.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	resp := IngestResponse{Report: ModelToReportResponse(report)}
	if incident != nil {
		resp.Incident = ModelToIncidentResponse(incident)
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary List recent reports
// @Description Get the most recently received reports.
// @Tags Reports
// @Accept json
// @Produce json
// @Param limit query int false "Maximum number of reports" default(100)
// @Success 200 {array} ReportResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [get]
func (h *Handler) listReports(c *gin.Context) {
	log := h.logger.WithField("method", "listReports")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	reports, err := h.reportService.ListReports(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to list reports from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToReportResponses(reports))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of all incidents.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Close an incident
// @Description Move an incident to the terminal closed status. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Incident already closed"
// @Router /incidents/{id}/close [post]
func (h *Handler) closeIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "closeIncident").WithField("id", id)

	if err := h.incidentService.CloseIncident(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrIncidentClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "incident already closed"})
		case errors.Is(err, service.ErrIncidentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		default:
			log.WithError(err).Error("Failed to close incident in service")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close incident"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get service statistics
// @Description Get report and incident counts for the configured time window. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.incidentService.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsToResponse(stats))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Animal Report API running"})
}
