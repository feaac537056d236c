package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportType - тип сообщения о животном
type ReportType string

const (
	ReportTypeDead    ReportType = "dead"
	ReportTypeInjured ReportType = "injured"
)

// RejectReason - причина отклонения сообщения спам-фильтром
type RejectReason string

const (
	RejectReasonThrottle        RejectReason = "throttle"
	RejectReasonDuplicateNearby RejectReason = "duplicate_nearby"
)

// Report представляет одно сообщение о мёртвом или раненом животном
type Report struct {
	ID                  int64        `json:"id"`
	Type                ReportType   `json:"type"`
	Latitude            float64      `json:"latitude"`
	Longitude           float64      `json:"longitude"`
	EventTimestamp      time.Time    `json:"event_timestamp"`
	ReceivedAt          time.Time    `json:"received_at"`
	ReporterFingerprint string       `json:"-"` // пустая строка, если клиента не удалось идентифицировать
	Accepted            bool         `json:"accepted"`
	RejectReason        RejectReason `json:"reject_reason,omitempty"`
	IncidentID          *uuid.UUID   `json:"incident_id,omitempty"`
}
