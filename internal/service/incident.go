package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/lock"
	"github.com/MS259/animal-report/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// incidentLockKey - ключ пер-инцидентной блокировки, общий для
// пересчета при приеме сообщений и операторского закрытия
func incidentLockKey(id uuid.UUID) string {
	return "incident:" + id.String()
}

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident_service.go -package=mocks

// Stats - сводка активности сервиса за окно наблюдения
type Stats struct {
	WindowMinutes       int                           `json:"window_minutes"`
	ReportCount         int                           `json:"report_count"`
	UniqueReporterCount int                           `json:"unique_reporter_count"`
	IncidentsByStatus   map[models.IncidentStatus]int `json:"incidents_by_status"`
}

// IncidentService определяет контракт бизнес-логики чтения и
// операторских действий над инцидентами
type IncidentService interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	// CloseIncident переводит инцидент в терминальный статус closed.
	// Единственный путь в closed - это операторское действие, ядро
	// приема сообщений такой переход не производит.
	CloseIncident(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (*Stats, error)
}

type incidentService struct {
	reports   ReportRepository
	incidents IncidentRepository
	locks     *lock.KeyedMutex
	clock     clockwork.Clock
	logger    *logrus.Logger
	cfg       *config.Config
}

// NewIncidentService создает сервис инцидентов
func NewIncidentService(reports ReportRepository, incidents IncidentRepository, locks *lock.KeyedMutex, clock clockwork.Clock, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		reports:   reports,
		incidents: incidents,
		locks:     locks,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}
}

// GetIncident получает инцидент по ID
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.incidents.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// CloseIncident закрывает инцидент
func (s *incidentService) CloseIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "CloseIncident",
		"incident_id": id,
	})
	log.Info("Attempting to close incident")

	// Закрытие конкурирует с пересчетом агрегата: без блокировки
	// параллельный пересчет мог бы перезаписать терминальный статус
	unlock := s.locks.Lock(incidentLockKey(id))
	defer unlock()

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to close a non-existent incident")
		return fmt.Errorf("service: incident with id %s not found for close: %w", id, err)
	}

	if incident.Status == models.IncidentStatusClosed {
		return ErrIncidentClosed
	}

	incident.Status = models.IncidentStatusClosed
	if err := s.incidents.Update(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to close incident in repository")
		return fmt.Errorf("service: could not close incident: %w", err)
	}

	log.Info("Incident closed successfully")
	return nil
}

// GetStats возвращает сводку за настроенное окно
func (s *incidentService) GetStats(ctx context.Context) (*Stats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "GetStats",
	})

	since := s.clock.Now().UTC().Add(-time.Duration(s.cfg.StatsTimeWindowMinutes) * time.Minute)

	reportCount, err := s.reports.CountSince(ctx, since)
	if err != nil {
		log.WithError(err).Error("Failed to count reports")
		return nil, fmt.Errorf("service: could not count reports: %w", err)
	}

	uniqueCount, err := s.reports.CountUniqueReportersSince(ctx, since)
	if err != nil {
		log.WithError(err).Error("Failed to count unique reporters")
		return nil, fmt.Errorf("service: could not count unique reporters: %w", err)
	}

	byStatus, err := s.incidents.CountByStatus(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to count incidents by status")
		return nil, fmt.Errorf("service: could not count incidents: %w", err)
	}

	return &Stats{
		WindowMinutes:       s.cfg.StatsTimeWindowMinutes,
		ReportCount:         reportCount,
		UniqueReporterCount: uniqueCount,
		IncidentsByStatus:   byStatus,
	}, nil
}
