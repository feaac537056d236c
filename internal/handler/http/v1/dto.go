package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateReportRequest DTO для подачи сообщения о животном.
// Координаты - указатели: для float64 валидатор считает нулевое значение
// отсутствующим, а широта или долгота 0 - легитимная точка
// @Description DTO для подачи сообщения о животном
type CreateReportRequest struct {
	Type      string    `json:"type" validate:"required,oneof=dead injured"`
	Latitude  *float64  `json:"latitude" validate:"required,latitude"`
	Longitude *float64  `json:"longitude" validate:"required,longitude"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// ReportResponse DTO для ответа с информацией о сообщении
// @Description DTO для ответа с информацией о сообщении
type ReportResponse struct {
	ID           int64      `json:"id"`
	Type         string     `json:"type"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Timestamp    time.Time  `json:"timestamp"`
	ReceivedAt   time.Time  `json:"received_at"`
	Accepted     bool       `json:"accepted"`
	RejectReason string     `json:"reject_reason,omitempty"`
	IncidentID   *uuid.UUID `json:"incident_id,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                  uuid.UUID `json:"id"`
	Type                string    `json:"type"`
	Status              string    `json:"status"`
	CentroidLat         float64   `json:"centroid_lat"`
	CentroidLon         float64   `json:"centroid_lon"`
	FirstReportAt       time.Time `json:"first_report_at"`
	LastReportAt        time.Time `json:"last_report_at"`
	ReportCount         int       `json:"report_count"`
	UniqueReporterCount int       `json:"unique_reporter_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IngestResponse DTO для ответа на подачу сообщения: сохраненное сообщение
// и инцидент, к которому оно привязано (null, если отклонено)
// @Description DTO для ответа на подачу сообщения
type IngestResponse struct {
	Report   *ReportResponse   `json:"report"`
	Incident *IncidentResponse `json:"incident,omitempty"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	WindowMinutes       int            `json:"window_minutes"`
	ReportCount         int            `json:"report_count"`
	UniqueReporterCount int            `json:"unique_reporter_count"`
	IncidentsByStatus   map[string]int `json:"incidents_by_status"`
}
