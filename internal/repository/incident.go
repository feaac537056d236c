package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/MS259/animal-report/internal/models"
	"github.com/MS259/animal-report/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &IncidentRepository{db: db}
}

// mapStoreErr переводит прерванные из-за конкуренции транзакции в
// service.ErrRaceLost, чтобы сервис мог повторить шаг сопоставления
func mapStoreErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsTransactionRollback(pgErr.Code) {
		return fmt.Errorf("%w: %w", service.ErrRaceLost, err)
	}
	return err
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (type, status, centroid_lat, centroid_lon, first_report_at, last_report_at, report_count, unique_reporter_count, lat_bucket, lon_bucket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Type,
		incident.Status,
		incident.CentroidLat,
		incident.CentroidLon,
		incident.FirstReportAt,
		incident.LastReportAt,
		incident.ReportCount,
		incident.UniqueReporterCount,
		incident.LatBucket,
		incident.LonBucket,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", mapStoreErr(err))
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := selectIncidents + `
		WHERE id = $1;
	`
	incident, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrIncidentNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", mapStoreErr(err))
	}
	return incident, nil
}

// FindCandidates возвращает открытые инциденты-кандидаты для сопоставления:
// тот же тип, свежий last_report_at, ячейка в запрошенном диапазоне.
// Сортировка по last_report_at по убыванию, так что ограничение отсекает
// самые давние инциденты
func (r *IncidentRepository) FindCandidates(ctx context.Context, q service.CandidateQuery) ([]*models.Incident, error) {
	query := selectIncidents + `
		WHERE
			type = $1
			AND status IN ('pending', 'confirmed')
			AND last_report_at >= $2
			AND lat_bucket BETWEEN $3 AND $4
			AND lon_bucket BETWEEN $5 AND $6
		ORDER BY last_report_at DESC
		LIMIT $7;
	`
	rows, err := r.db.Query(ctx, query,
		q.Type,
		q.LastReportAtSince,
		q.LatBucketMin,
		q.LatBucketMax,
		q.LonBucketMin,
		q.LonBucketMax,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate incidents: %w", mapStoreErr(err))
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Update сохраняет пересчитанные поля инцидента
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			status = $1,
			centroid_lat = $2,
			centroid_lon = $3,
			first_report_at = $4,
			last_report_at = $5,
			report_count = $6,
			unique_reporter_count = $7,
			lat_bucket = $8,
			lon_bucket = $9,
			updated_at = NOW()
		WHERE id = $10;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.Status,
		incident.CentroidLat,
		incident.CentroidLon,
		incident.FirstReportAt,
		incident.LastReportAt,
		incident.ReportCount,
		incident.UniqueReporterCount,
		incident.LatBucket,
		incident.LonBucket,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", mapStoreErr(err))
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for update: %w", incident.ID, service.ErrIncidentNotFound)
	}
	return nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (r *IncidentRepository) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (page - 1) * pageSize

	query := selectIncidents + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", mapStoreErr(err))
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// CountByStatus возвращает число инцидентов по каждому статусу
func (r *IncidentRepository) CountByStatus(ctx context.Context) (map[models.IncidentStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM incidents
		GROUP BY status;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by status: %w", mapStoreErr(err))
	}
	defer rows.Close()

	counts := make(map[models.IncidentStatus]int)
	for rows.Next() {
		var status models.IncidentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error status count iteration: %w", mapStoreErr(err))
	}
	return counts, nil
}

const selectIncidents = `
	SELECT
		id,
		type,
		status,
		centroid_lat,
		centroid_lon,
		first_report_at,
		last_report_at,
		report_count,
		unique_reporter_count,
		lat_bucket,
		lon_bucket,
		created_at,
		updated_at
	FROM incidents
`

func (r *IncidentRepository) scanOne(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Type,
		&incident.Status,
		&incident.CentroidLat,
		&incident.CentroidLon,
		&incident.FirstReportAt,
		&incident.LastReportAt,
		&incident.ReportCount,
		&incident.UniqueReporterCount,
		&incident.LatBucket,
		&incident.LonBucket,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *IncidentRepository) scanAll(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error incident rows iteration: %w", mapStoreErr(err))
	}
	return incidents, nil
}
