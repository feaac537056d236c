package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus - статус инцидента
type IncidentStatus string

const (
	IncidentStatusPending   IncidentStatus = "pending"
	IncidentStatusConfirmed IncidentStatus = "confirmed"
	// Терминальный статус, выставляется только оператором, ядро его не назначает
	IncidentStatusClosed IncidentStatus = "closed"
)

// Incident представляет кластер сообщений об одном реальном происшествии
type Incident struct {
	ID                  uuid.UUID      `json:"id"`
	Type                ReportType     `json:"type"`
	Status              IncidentStatus `json:"status"`
	CentroidLat         float64        `json:"centroid_lat"`
	CentroidLon         float64        `json:"centroid_lon"`
	FirstReportAt       time.Time      `json:"first_report_at"`
	LastReportAt        time.Time      `json:"last_report_at"`
	ReportCount         int            `json:"report_count"`
	UniqueReporterCount int            `json:"unique_reporter_count"`
	LatBucket           int            `json:"lat_bucket"`
	LonBucket           int            `json:"lon_bucket"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// IsOpen сообщает, может ли инцидент принимать новые сообщения
func (i *Incident) IsOpen() bool {
	return i.Status == IncidentStatusPending || i.Status == IncidentStatusConfirmed
}
