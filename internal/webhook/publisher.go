package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MS259/animal-report/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	webhookQueueKey = "webhook_events"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks

// Event - структура для данных вебхука о подтверждении инцидента
type Event struct {
	IncidentID          uuid.UUID             `json:"incident_id"`
	Type                models.ReportType     `json:"type"`
	Status              models.IncidentStatus `json:"status"`
	CentroidLat         float64               `json:"centroid_lat"`
	CentroidLon         float64               `json:"centroid_lon"`
	ReportCount         int                   `json:"report_count"`
	UniqueReporterCount int                   `json:"unique_reporter_count"`
	ConfirmedAt         time.Time             `json:"confirmed_at"`
}

// IncidentConfirmedEvent строит событие вебхука из подтвержденного инцидента
func IncidentConfirmedEvent(incident *models.Incident, confirmedAt time.Time) Event {
	return Event{
		IncidentID:          incident.ID,
		Type:                incident.Type,
		Status:              incident.Status,
		CentroidLat:         incident.CentroidLat,
		CentroidLon:         incident.CentroidLon,
		ReportCount:         incident.ReportCount,
		UniqueReporterCount: incident.UniqueReporterCount,
		ConfirmedAt:         confirmedAt,
	}
}

// Publisher - интерфейс для публикации вебхуков
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher - реализация Publisher, использующая Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
