package service

import (
	"context"
	"fmt"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/geo"
	"github.com/MS259/animal-report/internal/models"
	"github.com/sirupsen/logrus"
)

// Aggregator - единственный писатель производных полей инцидента.
// Пересчет обязан выполняться под блокировкой инцидента (см. reportService).
type Aggregator struct {
	reports   ReportRepository
	incidents IncidentRepository
	logger    *logrus.Logger
	cfg       *config.Config
}

// NewAggregator создает новый Aggregator
func NewAggregator(reports ReportRepository, incidents IncidentRepository, logger *logrus.Logger, cfg *config.Config) *Aggregator {
	return &Aggregator{
		reports:   reports,
		incidents: incidents,
		logger:    logger,
		cfg:       cfg,
	}
}

// Recompute перечитывает принятые сообщения инцидента и пересчитывает
// центроид, счетчики, временные границы, ячейки и статус, затем сохраняет
// инцидент. Возвращает true, если произошел переход pending -> confirmed.
// Пересчет идемпотентен: без новых сообщений повторный вызов дает тот же
// результат.
func (a *Aggregator) Recompute(ctx context.Context, incident *models.Incident) (bool, error) {
	members, err := a.reports.ListByIncident(ctx, incident.ID, true)
	if err != nil {
		return false, fmt.Errorf("aggregator: list members: %w", err)
	}
	if len(members) == 0 {
		return false, fmt.Errorf("aggregator: incident %s: %w", incident.ID, ErrNoMembers)
	}

	var sumLat, sumLon float64
	uniqueReporters := make(map[string]struct{})
	first := members[0].EventTimestamp
	last := members[0].EventTimestamp
	for _, r := range members {
		sumLat += r.Latitude
		sumLon += r.Longitude
		if r.ReporterFingerprint != "" {
			uniqueReporters[r.ReporterFingerprint] = struct{}{}
		}
		if r.EventTimestamp.Before(first) {
			first = r.EventTimestamp
		}
		if r.EventTimestamp.After(last) {
			last = r.EventTimestamp
		}
	}

	incident.ReportCount = len(members)
	incident.UniqueReporterCount = len(uniqueReporters)
	incident.CentroidLat = sumLat / float64(len(members))
	incident.CentroidLon = sumLon / float64(len(members))
	incident.FirstReportAt = first
	incident.LastReportAt = last
	incident.LatBucket = geo.Bucket(incident.CentroidLat, a.cfg.BucketCellSizeDeg)
	incident.LonBucket = geo.Bucket(incident.CentroidLon, a.cfg.BucketCellSizeDeg)

	confirmed := false
	newStatus := a.computeStatus(incident.ReportCount, incident.UniqueReporterCount)
	switch {
	case incident.Status == models.IncidentStatusPending && newStatus == models.IncidentStatusConfirmed:
		incident.Status = models.IncidentStatusConfirmed
		confirmed = true
	case incident.Status == models.IncidentStatusConfirmed && newStatus == models.IncidentStatusPending:
		// Сообщения из инцидента не удаляются, поэтому формула монотонна.
		// Видимый откат confirmed -> pending - дефект, а не штатный переход:
		// фиксируем в логе и сохраняем confirmed.
		a.logger.WithFields(logrus.Fields{
			"incident_id":  incident.ID,
			"report_count": incident.ReportCount,
			"unique_count": incident.UniqueReporterCount,
		}).Error("confirmed incident recomputed to pending, keeping confirmed")
	}

	if err := a.incidents.Update(ctx, incident); err != nil {
		return false, fmt.Errorf("aggregator: update incident: %w", err)
	}
	return confirmed, nil
}

// computeStatus применяет пороги подтверждения. Проверка уникальных
// репортеров обходится только когда ни одно сообщение не удалось
// связать с клиентом (unique == 0).
func (a *Aggregator) computeStatus(reportCount, uniqueCount int) models.IncidentStatus {
	if reportCount >= a.cfg.ConfirmReports &&
		(uniqueCount >= a.cfg.ConfirmUnique || uniqueCount == 0) {
		return models.IncidentStatusConfirmed
	}
	return models.IncidentStatusPending
}
