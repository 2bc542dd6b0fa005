package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type pgDeviceEventsLogRepository struct {
	db *sql.DB
}

func NewPgDeviceEventsLogRepository(db *sql.DB) repository.DeviceEventsLogRepository {
	return &pgDeviceEventsLogRepository{db: db}
}

func (r *pgDeviceEventsLogRepository) Create(ctx context.Context, event *domain.DeviceEventLog) error {
	query := `INSERT INTO device_events_log
	           (received_at, device_thing_name, mqtt_topic, message_type, payload, processed_status, processing_notes)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		event.ReceivedAt, event.DeviceThingName, event.MqttTopic, event.MessageType,
		event.Payload, event.ProcessedStatus, event.ProcessingNotes,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("DeviceEventsLogRepository.Create: %w", err)
	}
	return nil
}
