package service

import (
	"context"
	"time"

	"github.com/MS259/animal-report/internal/models"
	"github.com/google/uuid"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_repositories.go -package=mocks

// ReportRepository определяет контракт хранилища сообщений
type ReportRepository interface {
	Insert(ctx context.Context, report *models.Report) error
	// Relink переносит уже сохраненное сообщение на другой инцидент.
	// Нужен повторной попытке размещения, когда она сопоставила не тот
	// инцидент, что предыдущая
	Relink(ctx context.Context, reportID int64, incidentID uuid.UUID) error
	// CountByFingerprintSince считает все сообщения (принятые и отклоненные)
	// от фингерпринта с received_at не раньше since
	CountByFingerprintSince(ctx context.Context, fp string, since time.Time) (int, error)
	// FindLatestAccepted возвращает последнее принятое сообщение фингерпринта
	// того же типа с received_at не раньше since, либо nil
	FindLatestAccepted(ctx context.Context, fp string, reportType models.ReportType, since time.Time) (*models.Report, error)
	ListByIncident(ctx context.Context, incidentID uuid.UUID, acceptedOnly bool) ([]*models.Report, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Report, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountUniqueReportersSince(ctx context.Context, since time.Time) (int, error)
}

// CandidateQuery описывает поиск открытых инцидентов-кандидатов:
// тот же тип, last_report_at внутри окна, ячейка в заданном диапазоне
type CandidateQuery struct {
	Type              models.ReportType
	LastReportAtSince time.Time
	LatBucketMin      int
	LatBucketMax      int
	LonBucketMin      int
	LonBucketMax      int
	Limit             int
}

// IncidentRepository определяет контракт хранилища инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	// FindCandidates возвращает открытые (pending/confirmed) инциденты
	// по запросу, отсортированные по last_report_at по убыванию
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident) error
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	CountByStatus(ctx context.Context) (map[models.IncidentStatus]int, error)
}
