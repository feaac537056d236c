package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/fingerprint"
	"github.com/MS259/animal-report/internal/geo"
	"github.com/MS259/animal-report/internal/lock"
	"github.com/MS259/animal-report/internal/models"
	"github.com/MS259/animal-report/internal/observability"
	"github.com/MS259/animal-report/internal/webhook"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=report.go -destination=mocks/mock_report_service.go -package=mocks

// ReportInput - провалидированное сообщение от вызывающей стороны
type ReportInput struct {
	Type           models.ReportType
	Latitude       float64
	Longitude      float64
	EventTimestamp time.Time
}

// IdentityContext - сетевые метаданные запроса для фингерпринта клиента
type IdentityContext struct {
	SourceAddr  string
	ClientAgent string
}

// ReportService определяет контракт приема сообщений
type ReportService interface {
	// Ingest обрабатывает одно сообщение: спам-фильтр, сопоставление с
	// инцидентом, пересчет агрегата. Возвращает сохраненное сообщение и
	// инцидент, к которому оно привязано (nil, если отклонено).
	Ingest(ctx context.Context, input ReportInput, identity IdentityContext) (*models.Report, *models.Incident, error)
	ListReports(ctx context.Context, limit int) ([]*models.Report, error)
}

type reportService struct {
	reports      ReportRepository
	incidents    IncidentRepository
	filter       *SpamFilter
	matcher      *Matcher
	aggregator   *Aggregator
	fingerprints *fingerprint.Deriver
	locks        *lock.KeyedMutex
	publisher    webhook.Publisher
	metrics      *observability.Metrics
	clock        clockwork.Clock
	logger       *logrus.Logger
	cfg          *config.Config
}

// NewReportService создает сервис приема сообщений со всеми компонентами ядра.
// Набор блокировок общий с сервисом инцидентов: закрытие и пересчет
// сериализуются на одном и том же пер-инцидентном ключе.
func NewReportService(
	reports ReportRepository,
	incidents IncidentRepository,
	fingerprints *fingerprint.Deriver,
	publisher webhook.Publisher,
	metrics *observability.Metrics,
	locks *lock.KeyedMutex,
	clock clockwork.Clock,
	logger *logrus.Logger,
	cfg *config.Config,
) ReportService {
	return &reportService{
		reports:      reports,
		incidents:    incidents,
		filter:       NewSpamFilter(reports, cfg),
		matcher:      NewMatcher(incidents, cfg),
		aggregator:   NewAggregator(reports, incidents, logger, cfg),
		fingerprints: fingerprints,
		locks:        locks,
		publisher:    publisher,
		metrics:      metrics,
		clock:        clock,
		logger:       logger,
		cfg:          cfg,
	}
}

// Ingest реализует полный конвейер обработки одного сообщения
func (s *reportService) Ingest(ctx context.Context, input ReportInput, identity IdentityContext) (*models.Report, *models.Incident, error) {
	now := s.clock.Now().UTC()
	fp, _ := s.fingerprints.Derive(identity.SourceAddr, identity.ClientAgent)

	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "Ingest",
		"type":    input.Type,
	})

	report := &models.Report{
		Type:                input.Type,
		Latitude:            input.Latitude,
		Longitude:           input.Longitude,
		EventTimestamp:      input.EventTimestamp,
		ReceivedAt:          now,
		ReporterFingerprint: fp,
	}

	decision, err := s.filter.Evaluate(ctx, fp, input.Type, input.Latitude, input.Longitude, now)
	if err != nil {
		log.WithError(err).Error("Failed to evaluate spam filter")
		return nil, nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// Отклоненное сообщение сохраняется для аудита, но никогда не
	// привязывается к инциденту
	if !decision.Accepted {
		report.Accepted = false
		report.RejectReason = decision.Reason
		if err := s.reports.Insert(ctx, report); err != nil {
			log.WithError(err).Error("Failed to store rejected report")
			return nil, nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		s.metrics.ReportsRejected.WithLabelValues(string(decision.Reason)).Inc()
		log.WithField("reject_reason", decision.Reason).Info("Report rejected")
		return report, nil, nil
	}
	report.Accepted = true

	// Сопоставление и пересчет повторяются при проигрыше гонки
	// (прерванная транзакция), ограниченное число раз
	var (
		incident  *models.Incident
		created   bool
		confirmed bool
		lastErr   error
	)
	for attempt := 0; attempt <= s.cfg.IngestMaxRetries; attempt++ {
		incident, created, confirmed, lastErr = s.placeReport(ctx, report, now)
		if !errors.Is(lastErr, ErrRaceLost) {
			break
		}
		log.WithError(lastErr).WithField("attempt", attempt).Warn("Lost race placing report, retrying")
	}
	if lastErr != nil {
		if errors.Is(lastErr, ErrRaceLost) {
			return nil, nil, fmt.Errorf("%w: retries exhausted: %w", ErrStoreUnavailable, lastErr)
		}
		log.WithError(lastErr).Error("Failed to place report")
		return nil, nil, lastErr
	}

	s.metrics.ReportsAccepted.Inc()
	if created {
		s.metrics.IncidentsCreated.Inc()
	}
	log = log.WithFields(logrus.Fields{
		"report_id":   report.ID,
		"incident_id": incident.ID,
	})

	if confirmed {
		s.metrics.IncidentsConfirmed.Inc()
		// Инцидент уже зафиксирован в хранилище, сбой очереди уведомлений
		// не откатывает прием
		if err := s.publisher.Publish(ctx, webhook.IncidentConfirmedEvent(incident, now)); err != nil {
			log.WithError(err).Error("Failed to publish incident confirmed event")
		} else {
			log.Info("Incident confirmed, event published")
		}
	}

	log.Info("Report accepted")
	return report, incident, nil
}

// placeReport выполняет критическую секцию: сопоставить-или-создать инцидент,
// привязать сообщение, пересчитать агрегат. Секция сериализуется на уровне
// инцидента: блокировка создания по (тип, ячейка) берется первой и
// отпускается сразу после захвата блокировки целевого инцидента, поэтому
// сообщения для разных инцидентов идут параллельно.
func (s *reportService) placeReport(ctx context.Context, report *models.Report, now time.Time) (*models.Incident, bool, bool, error) {
	latBucket := geo.Bucket(report.Latitude, s.cfg.BucketCellSizeDeg)
	lonBucket := geo.Bucket(report.Longitude, s.cfg.BucketCellSizeDeg)

	unlockCreate := s.locks.Lock(fmt.Sprintf("create:%s:%d:%d", report.Type, latBucket, lonBucket))

	incident, err := s.matcher.Match(ctx, report.Type, report.Latitude, report.Longitude, now)
	if err != nil {
		unlockCreate()
		return nil, false, false, storeErr(err)
	}

	created := false
	if incident == nil {
		// Нет подходящего инцидента: создаем новый, засеянный координатами
		// и временем этого сообщения
		incident = &models.Incident{
			Type:          report.Type,
			Status:        models.IncidentStatusPending,
			CentroidLat:   report.Latitude,
			CentroidLon:   report.Longitude,
			FirstReportAt: report.EventTimestamp,
			LastReportAt:  report.EventTimestamp,
			LatBucket:     latBucket,
			LonBucket:     lonBucket,
		}
		if err := s.incidents.Create(ctx, incident); err != nil {
			unlockCreate()
			return nil, false, false, storeErr(err)
		}
		created = true
	}

	unlockIncident := s.locks.Lock(incidentLockKey(incident.ID))
	unlockCreate()
	defer unlockIncident()

	// Сопоставление читало кандидатов до захвата блокировки, снимок мог
	// устареть. Перечитываем инцидент под блокировкой: переход
	// pending -> confirmed определяется только по свежему статусу
	fresh, err := s.incidents.GetByID(ctx, incident.ID)
	if err != nil {
		return nil, false, false, storeErr(err)
	}
	// Инцидент закрыли между сопоставлением и блокировкой. Closed
	// терминален, поэтому повторяем сопоставление с чистого листа
	if !fresh.IsOpen() {
		return nil, false, false, fmt.Errorf("incident %s closed during match: %w", incident.ID, ErrRaceLost)
	}
	incident = fresh

	switch {
	// При повторной попытке после проигранной гонки на пересчете
	// сообщение уже сохранено - не вставляем его второй раз
	case report.ID == 0:
		report.IncidentID = &incident.ID
		if err := s.reports.Insert(ctx, report); err != nil {
			report.IncidentID = nil
			return nil, false, false, storeErr(err)
		}
	// Повторная попытка сопоставила другой инцидент, чем предыдущая -
	// переносим привязку уже сохраненной строки
	case report.IncidentID == nil || *report.IncidentID != incident.ID:
		if err := s.reports.Relink(ctx, report.ID, incident.ID); err != nil {
			return nil, false, false, storeErr(err)
		}
		report.IncidentID = &incident.ID
	}

	confirmed, err := s.aggregator.Recompute(ctx, incident)
	if err != nil {
		return nil, false, false, storeErr(err)
	}
	return incident, created, confirmed, nil
}

// ListReports возвращает последние сообщения для панели наблюдения
func (s *reportService) ListReports(ctx context.Context, limit int) ([]*models.Report, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	reports, err := s.reports.ListRecent(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports from repository")
		return nil, fmt.Errorf("service: could not list reports: %w", err)
	}
	return reports, nil
}

// storeErr нормализует ошибки хранилища: проигранная гонка остается
// различимой для повторной попытки, все остальное - ErrStoreUnavailable
func storeErr(err error) error {
	if errors.Is(err, ErrRaceLost) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
