package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/geo"
	"github.com/MS259/animal-report/internal/models"
)

// Matcher ищет для принятого сообщения подходящий открытый инцидент.
// Инциденты читает, но не изменяет - запись остается за агрегатором.
type Matcher struct {
	incidents IncidentRepository
	cfg       *config.Config
}

// NewMatcher создает новый Matcher
func NewMatcher(incidents IncidentRepository, cfg *config.Config) *Matcher {
	return &Matcher{incidents: incidents, cfg: cfg}
}

// Match возвращает ближайший открытый инцидент того же типа с центроидом
// не дальше MatchRadiusM и last_report_at внутри MatchWindow, либо nil.
// Поиск кандидатов сужен до окрестности 3x3 ячейки вокруг точки: точка у
// границы ячейки может принадлежать инциденту из соседней.
// Число просматриваемых кандидатов ограничено CandidateLimit самых свежих -
// осознанный размен точности на предсказуемую стоимость в плотных зонах.
func (m *Matcher) Match(ctx context.Context, reportType models.ReportType, lat, lon float64, now time.Time) (*models.Incident, error) {
	latBucket := geo.Bucket(lat, m.cfg.BucketCellSizeDeg)
	lonBucket := geo.Bucket(lon, m.cfg.BucketCellSizeDeg)

	candidates, err := m.incidents.FindCandidates(ctx, CandidateQuery{
		Type:              reportType,
		LastReportAtSince: now.Add(-m.cfg.MatchWindow),
		LatBucketMin:      latBucket - 1,
		LatBucketMax:      latBucket + 1,
		LonBucketMin:      lonBucket - 1,
		LonBucketMax:      lonBucket + 1,
		Limit:             m.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("matcher: find candidates: %w", err)
	}

	var best *models.Incident
	var bestDist float64
	for _, cand := range candidates {
		dist := geo.HaversineM(cand.CentroidLat, cand.CentroidLon, lat, lon)
		if dist > m.cfg.MatchRadiusM {
			continue
		}
		// Меньшая дистанция побеждает; при точном равенстве - меньший id,
		// чтобы выбор был детерминированным
		if best == nil || dist < bestDist ||
			(dist == bestDist && strings.Compare(cand.ID.String(), best.ID.String()) < 0) {
			best = cand
			bestDist = dist
		}
	}

	return best, nil
}
