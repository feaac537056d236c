package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/geo"
	"github.com/MS259/animal-report/internal/models"
)

// SpamFilter решает, принимать ли сообщение от клиента.
// Чистая функция над чтениями хранилища: само сообщение сохраняет вызывающий.
type SpamFilter struct {
	reports ReportRepository
	cfg     *config.Config
}

// NewSpamFilter создает новый SpamFilter
func NewSpamFilter(reports ReportRepository, cfg *config.Config) *SpamFilter {
	return &SpamFilter{reports: reports, cfg: cfg}
}

// Decision - вердикт спам-фильтра
type Decision struct {
	Accepted bool
	Reason   models.RejectReason
}

// Evaluate применяет два независимых правила по порядку, первое сработавшее
// побеждает: троттлинг по частоте, затем близкий дубликат. Без фингерпринта
// оба правила пропускаются и сообщение принимается.
func (f *SpamFilter) Evaluate(ctx context.Context, fp string, reportType models.ReportType, lat, lon float64, now time.Time) (Decision, error) {
	if fp == "" {
		return Decision{Accepted: true}, nil
	}

	// Правило 1: не больше ThrottleMaxReports сообщений за ThrottleWindow,
	// независимо от типа и координат
	since := now.Add(-f.cfg.ThrottleWindow)
	count, err := f.reports.CountByFingerprintSince(ctx, fp, since)
	if err != nil {
		return Decision{}, fmt.Errorf("filter: count by fingerprint: %w", err)
	}
	if count >= f.cfg.ThrottleMaxReports {
		return Decision{Accepted: false, Reason: models.RejectReasonThrottle}, nil
	}

	// Правило 2: последнее принятое сообщение того же типа за DuplicateWindow
	// ближе DuplicateRadiusM метров - близкий дубликат
	dupSince := now.Add(-f.cfg.DuplicateWindow)
	latest, err := f.reports.FindLatestAccepted(ctx, fp, reportType, dupSince)
	if err != nil {
		return Decision{}, fmt.Errorf("filter: find latest accepted: %w", err)
	}
	if latest != nil {
		dist := geo.HaversineM(latest.Latitude, latest.Longitude, lat, lon)
		if dist <= f.cfg.DuplicateRadiusM {
			return Decision{Accepted: false, Reason: models.RejectReasonDuplicateNearby}, nil
		}
	}

	return Decision{Accepted: true}, nil
}
