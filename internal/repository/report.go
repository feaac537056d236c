package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MS259/animal-report/internal/models"
	"github.com/MS259/animal-report/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) service.ReportRepository {
	return &ReportRepository{db: db}
}

// Insert создает новую запись сообщения в бд
func (r *ReportRepository) Insert(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (type, latitude, longitude, event_timestamp, received_at, reporter_fingerprint, accepted, reject_reason, incident_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9) RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		report.Type,
		report.Latitude,
		report.Longitude,
		report.EventTimestamp,
		report.ReceivedAt,
		report.ReporterFingerprint,
		report.Accepted,
		string(report.RejectReason),
		report.IncidentID,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", mapStoreErr(err))
	}
	return nil
}

// Relink переносит сохраненное сообщение на другой инцидент
func (r *ReportRepository) Relink(ctx context.Context, reportID int64, incidentID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE reports SET incident_id = $1 WHERE id = $2;`, incidentID, reportID)
	if err != nil {
		return fmt.Errorf("failed to relink report: %w", mapStoreErr(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report with id %d not found for relink", reportID)
	}
	return nil
}

// CountByFingerprintSince считает все сообщения фингерпринта с received_at не раньше since
func (r *ReportRepository) CountByFingerprintSince(ctx context.Context, fp string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reports
		WHERE reporter_fingerprint = $1 AND received_at >= $2;
	`
	var count int
	err := r.db.QueryRow(ctx, query, fp, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports by fingerprint: %w", mapStoreErr(err))
	}
	return count, nil
}

// FindLatestAccepted возвращает последнее принятое сообщение фингерпринта того же типа
func (r *ReportRepository) FindLatestAccepted(ctx context.Context, fp string, reportType models.ReportType, since time.Time) (*models.Report, error) {
	query := selectReports + `
		WHERE reporter_fingerprint = $1 AND type = $2 AND accepted = TRUE AND received_at >= $3
		ORDER BY received_at DESC
		LIMIT 1;
	`
	report, err := r.scanOne(r.db.QueryRow(ctx, query, fp, reportType, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest accepted report: %w", mapStoreErr(err))
	}
	return report, nil
}

// ListByIncident возвращает сообщения, привязанные к инциденту
func (r *ReportRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID, acceptedOnly bool) ([]*models.Report, error) {
	query := selectReports + `
		WHERE incident_id = $1 AND (NOT $2 OR accepted = TRUE)
		ORDER BY received_at ASC;
	`
	rows, err := r.db.Query(ctx, query, incidentID, acceptedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports by incident: %w", mapStoreErr(err))
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListRecent возвращает последние сообщения
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*models.Report, error) {
	query := selectReports + `
		ORDER BY received_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reports: %w", mapStoreErr(err))
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// CountSince возвращает число сообщений с received_at не раньше since
func (r *ReportRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE received_at >= $1;`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", mapStoreErr(err))
	}
	return count, nil
}

// CountUniqueReportersSince возвращает число уникальных фингерпринтов за окно
func (r *ReportRepository) CountUniqueReportersSince(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT reporter_fingerprint)
		FROM reports
		WHERE reporter_fingerprint IS NOT NULL AND received_at >= $1;
	`
	var count int
	err := r.db.QueryRow(ctx, query, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique reporters: %w", mapStoreErr(err))
	}
	return count, nil
}

const selectReports = `
	SELECT
		id,
		type,
		latitude,
		longitude,
		event_timestamp,
		received_at,
		COALESCE(reporter_fingerprint, ''),
		accepted,
		COALESCE(reject_reason, ''),
		incident_id
	FROM reports
`

func (r *ReportRepository) scanOne(row pgx.Row) (*models.Report, error) {
	report := &models.Report{}
	var rejectReason string
	err := row.Scan(
		&report.ID,
		&report.Type,
		&report.Latitude,
		&report.Longitude,
		&report.EventTimestamp,
		&report.ReceivedAt,
		&report.ReporterFingerprint,
		&report.Accepted,
		&rejectReason,
		&report.IncidentID,
	)
	if err != nil {
		return nil, err
	}
	report.RejectReason = models.RejectReason(rejectReason)
	return report, nil
}

func (r *ReportRepository) scanAll(rows pgx.Rows) ([]*models.Report, error) {
	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error report rows iteration: %w", mapStoreErr(err))
	}
	return reports, nil
}
