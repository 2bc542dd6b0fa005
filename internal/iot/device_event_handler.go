package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

// DeviceEventHandler phân loại message thiết bị từ SQS và đẩy vào service
// tương ứng. Mọi payload đều được ghi vào bảng log để audit, kể cả khi
// unmarshal thất bại.
type DeviceEventHandler struct {
	sessionService *service.SessionService
	barrierService *service.BarrierService
	eventLogRepo   repository.DeviceEventsLogRepository
}

func NewDeviceEventHandler(sessionService *service.SessionService, barrierService *service.BarrierService, eventLogRepo repository.DeviceEventsLogRepository) *DeviceEventHandler {
	return &DeviceEventHandler{
		sessionService: sessionService,
		barrierService: barrierService,
		eventLogRepo:   eventLogRepo,
	}
}

func (h *DeviceEventHandler) HandleDeviceEvent(ctx context.Context, sqsMessageBody string) error {
	rawPayload := json.RawMessage(sqsMessageBody)

	var genericEvent domain.GenericDeviceEvent
	if err := json.Unmarshal(rawPayload, &genericEvent); err != nil {
		log.Printf("Lỗi unmarshal device event: %v. Body: %s", err, sqsMessageBody)
		h.logEvent(genericEvent, rawPayload, "error", fmt.Sprintf("unmarshal thất bại: %v", err))
		return fmt.Errorf("lỗi unmarshal device event: %w", err)
	}
	genericEvent.RawPayload = rawPayload

	var processingError error

	switch genericEvent.MessageType {
	case "plate_detected":
		var event domain.PlateDetectedEvent
		if err := json.Unmarshal(genericEvent.RawPayload, &event); err == nil {
			event.GenericDeviceEvent = genericEvent
			processingError = h.handlePlateDetected(ctx, event)
		} else {
			processingError = fmt.Errorf("lỗi unmarshal plate_detected event: %w", err)
		}

	case "command_acknowledgement":
		var event domain.DeviceCommandAckEvent
		if err := json.Unmarshal(genericEvent.RawPayload, &event); err == nil {
			event.GenericDeviceEvent = genericEvent
			processingError = h.barrierService.HandleCommandAck(ctx, event)
		} else {
			processingError = fmt.Errorf("lỗi unmarshal command_ack event: %w", err)
		}

	default:
		log.Printf("DeviceEventHandler: Loại message không được xử lý: '%s'", genericEvent.MessageType)
		processingError = nil // Không coi là lỗi, chỉ log
	}

	if processingError != nil {
		log.Printf("Lỗi khi xử lý sự kiện loại '%s' (Device: %s, Topic: %s): %v",
			genericEvent.MessageType, genericEvent.DeviceID, genericEvent.ReceivedMqttTopic, processingError)
		h.logEvent(genericEvent, rawPayload, "error", processingError.Error())
		// Lỗi nghiệp vụ dứt điểm (blacklist, session trùng, race thua) thì
		// retry cũng không đổi kết quả: xóa message thay vì để SQS dội lại.
		if isTerminalProcessingError(processingError) {
			return nil
		}
		return processingError
	}

	h.logEvent(genericEvent, rawPayload, "processed", "")
	return nil
}

func (h *DeviceEventHandler) handlePlateDetected(ctx context.Context, event domain.PlateDetectedEvent) error {
	switch event.Direction {
	case "entry":
		_, err := h.sessionService.HandleEntryEvent(ctx, domain.EntryEventDTO{
			Plate:     event.Plate,
			LaneID:    event.LaneID,
			SiteID:    event.SiteID,
			EventTime: event.Timestamp,
		})
		return err
	case "exit":
		_, err := h.sessionService.HandleExitEvent(ctx, domain.ExitEventDTO{
			Plate:     event.Plate,
			SiteID:    event.SiteID,
			LaneID:    event.LaneID,
			EventTime: event.Timestamp,
		})
		return err
	default:
		return fmt.Errorf("plate_detected với direction không hợp lệ: '%s'", event.Direction)
	}
}

func isTerminalProcessingError(err error) bool {
	return errors.Is(err, service.ErrEntryBlocked) ||
		errors.Is(err, repository.ErrDuplicateEntry) ||
		errors.Is(err, repository.ErrInvalidTransition) ||
		errors.Is(err, repository.ErrNoActiveSession)
}

func (h *DeviceEventHandler) logEvent(event domain.GenericDeviceEvent, payload json.RawMessage, status, notes string) {
	if h.eventLogRepo == nil {
		return
	}
	logEntry := &domain.DeviceEventLog{
		ReceivedAt:      time.Now().UTC(),
		DeviceThingName: event.DeviceID,
		MqttTopic:       event.ReceivedMqttTopic,
		MessageType:     event.MessageType,
		Payload:         payload,
		ProcessedStatus: status,
		ProcessingNotes: notes,
	}
	if err := h.eventLogRepo.Create(context.Background(), logEntry); err != nil {
		log.Printf("Lỗi khi ghi log sự kiện vào DB: %v", err)
	}
}
