package v1

import (
	"github.com/MS259/animal-report/internal/models"
	"github.com/MS259/animal-report/internal/service"
)

// DTOToReportInput преобразует DTO подачи сообщения во входные данные ядра
func DTOToReportInput(dto CreateReportRequest) service.ReportInput {
	return service.ReportInput{
		Type:           models.ReportType(dto.Type),
		Latitude:       *dto.Latitude,
		Longitude:      *dto.Longitude,
		EventTimestamp: dto.Timestamp,
	}
}

// ModelToReportResponse преобразует доменную модель сообщения в DTO для ответа
func ModelToReportResponse(model *models.Report) *ReportResponse {
	return &ReportResponse{
		ID:           model.ID,
		Type:         string(model.Type),
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		Timestamp:    model.EventTimestamp,
		ReceivedAt:   model.ReceivedAt,
		Accepted:     model.Accepted,
		RejectReason: string(model.RejectReason),
		IncidentID:   model.IncidentID,
	}
}

// ModelsToReportResponses преобразует слайс моделей в слайс DTO
func ModelsToReportResponses(models []*models.Report) []*ReportResponse {
	responses := make([]*ReportResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToReportResponse(model)
	}
	return responses
}

// ModelToIncidentResponse преобразует доменную модель инцидента в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:                  model.ID,
		Type:                string(model.Type),
		Status:              string(model.Status),
		CentroidLat:         model.CentroidLat,
		CentroidLon:         model.CentroidLon,
		FirstReportAt:       model.FirstReportAt,
		LastReportAt:        model.LastReportAt,
		ReportCount:         model.ReportCount,
		UniqueReporterCount: model.UniqueReporterCount,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// StatsToResponse преобразует сводку сервиса в DTO для ответа
func StatsToResponse(stats *service.Stats) *StatsResponse {
	byStatus := make(map[string]int, len(stats.IncidentsByStatus))
	for status, count := range stats.IncidentsByStatus {
		byStatus[string(status)] = count
	}
	return &StatsResponse{
		WindowMinutes:       stats.WindowMinutes,
		ReportCount:         stats.ReportCount,
		UniqueReporterCount: stats.UniqueReporterCount,
		IncidentsByStatus:   byStatus,
	}
}
