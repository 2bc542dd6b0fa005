package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

var ErrBarrierCommandFailed = errors.New("ra lệnh rào chắn thất bại")

// BarrierDriver đẩy lệnh xuống phần cứng (MQTT qua AWS IoT). Implementation
// phải tôn trọng ctx: quá timeout thì trả lỗi, không treo.
type BarrierDriver interface {
	SendCommand(ctx context.Context, barrier domain.Barrier, action domain.BarrierAction, requestID string) error
}

type BarrierService struct {
	barrierRepo       repository.BarrierRepository
	cmdRepo           repository.BarrierCommandRepository
	driver            BarrierDriver
	notifier          Notifier
	commandTimeout    time.Duration
	idempotencyWindow time.Duration
	now               func() time.Time
}

func NewBarrierService(barrierRepo repository.BarrierRepository, cmdRepo repository.BarrierCommandRepository, driver BarrierDriver, notifier Notifier, commandTimeout, idempotencyWindow time.Duration) *BarrierService {
	return &BarrierService{
		barrierRepo:       barrierRepo,
		cmdRepo:           cmdRepo,
		driver:            driver,
		notifier:          notifier,
		commandTimeout:    commandTimeout,
		idempotencyWindow: idempotencyWindow,
		now:               time.Now,
	}
}

// IssueCommand ra lệnh mở/đóng rào chắn trên một làn. Mọi lệnh đều được ghi
// vào sổ trước khi gọi phần cứng; lệnh trùng (cùng correlation_id + action
// trong cửa sổ idempotency) trả lại dòng sổ cũ, không gọi lại thiết bị.
func (s *BarrierService) IssueCommand(ctx context.Context, laneID string, action domain.BarrierAction, reason, correlationID string) (*domain.BarrierCommand, error) {
	barrier, err := s.barrierRepo.FindByLaneID(ctx, laneID)
	if err != nil {
		return nil, fmt.Errorf("BarrierService.IssueCommand: lane '%s': %w", laneID, err)
	}
	return s.issueToBarrier(ctx, *barrier, action, reason, correlationID)
}

func (s *BarrierService) issueToBarrier(ctx context.Context, barrier domain.Barrier, action domain.BarrierAction, reason, correlationID string) (*domain.BarrierCommand, error) {
	now := s.now().UTC()

	if correlationID != "" {
		existing, err := s.cmdRepo.FindByCorrelation(ctx, correlationID, action, now.Add(-s.idempotencyWindow))
		if err == nil {
			log.Printf("Lệnh rào chắn trùng lặp (correlation=%s, action=%s), trả lại lệnh %s", correlationID, action, existing.ID)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("BarrierService.issueToBarrier: %w", err)
		}
	}

	cmd := &domain.BarrierCommand{
		ID:            uuid.New().String(),
		SiteID:        barrier.SiteID,
		LaneID:        barrier.LaneID,
		Esp32Thing:    barrier.Esp32ThingName,
		Action:        action,
		Reason:        reason,
		CorrelationID: correlationID,
		Status:        domain.CommandPending,
		IssuedAt:      now,
	}
	cmd, err := s.cmdRepo.Create(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("BarrierService.issueToBarrier: %w", err)
	}

	driverCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	sendErr := s.driver.SendCommand(driverCtx, barrier, action, cmd.ID)
	completedAt := s.now().UTC()

	if sendErr != nil {
		cmd.Status = domain.CommandFailed
		cmd.Detail.SetValid(sendErr.Error())
		cmd.CompletedAt.SetValid(completedAt)
		if updErr := s.cmdRepo.UpdateStatus(ctx, cmd.ID, cmd.Status, cmd.Detail.String, completedAt); updErr != nil {
			log.Printf("Không cập nhật được trạng thái lệnh %s: %v", cmd.ID, updErr)
		}
		log.Printf("Lệnh %s (%s %s) thất bại: %v", cmd.ID, action, barrier.LaneID, sendErr)
		s.publishResult(cmd)
		return cmd, fmt.Errorf("%w: %v", ErrBarrierCommandFailed, sendErr)
	}

	cmd.Status = domain.CommandExecuted
	cmd.CompletedAt.SetValid(completedAt)
	if updErr := s.cmdRepo.UpdateStatus(ctx, cmd.ID, cmd.Status, cmd.Detail.String, completedAt); updErr != nil {
		log.Printf("Không cập nhật được trạng thái lệnh %s: %v", cmd.ID, updErr)
	}
	log.Printf("Đã %s rào chắn làn %s (lệnh %s)", action, barrier.LaneID, cmd.ID)
	s.publishResult(cmd)
	return cmd, nil
}

// EmergencyOpenAll mở toàn bộ rào chắn của tất cả các site. Lỗi trên một
// thiết bị được gom vào kết quả thay vì dừng cả loạt.
func (s *BarrierService) EmergencyOpenAll(ctx context.Context, reason string) (*domain.EmergencyOpenResult, error) {
	barriers, err := s.barrierRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("BarrierService.EmergencyOpenAll: %w", err)
	}

	result := &domain.EmergencyOpenResult{Failed: make(map[string]string)}
	for _, b := range barriers {
		// correlation theo làn: bấm khẩn cấp nhiều lần liên tiếp
		// không dội lệnh xuống cùng một thiết bị
		cmd, err := s.issueToBarrier(ctx, b, domain.BarrierOpen, reason, "emergency-"+b.LaneID)
		if err != nil {
			detail := err.Error()
			if cmd != nil && cmd.Detail.Valid {
				detail = cmd.Detail.String
			}
			result.Failed[b.LaneID] = detail
			continue
		}
		result.Executed = append(result.Executed, b.LaneID)
	}
	log.Printf("Mở khẩn cấp: %d thành công, %d thất bại (lý do: %s)", len(result.Executed), len(result.Failed), reason)
	return result, nil
}

// HandleCommandAck xử lý ack từ ESP32 (qua SQS). Ack đến sau khi lệnh đã
// được đánh dấu theo kết quả publish, nên ở đây chỉ ghi đè khi thiết bị
// báo khác đi (ví dụ publish OK nhưng servo kẹt).
func (s *BarrierService) HandleCommandAck(ctx context.Context, event domain.DeviceCommandAckEvent) error {
	if event.RequestID == "" {
		return errors.New("BarrierService.HandleCommandAck: thiếu request_id")
	}

	cmd, err := s.cmdRepo.FindByID(ctx, event.RequestID)
	if err != nil {
		return fmt.Errorf("BarrierService.HandleCommandAck: lệnh '%s': %w", event.RequestID, err)
	}

	status := domain.CommandExecuted
	if event.Status != "acknowledged" {
		status = domain.CommandFailed
	}
	if cmd.Status == status {
		return nil
	}

	cmd.Status = status
	if event.Detail != "" {
		cmd.Detail.SetValid(event.Detail)
	}
	completedAt := s.now().UTC()
	cmd.CompletedAt.SetValid(completedAt)
	if err := s.cmdRepo.UpdateStatus(ctx, cmd.ID, status, cmd.Detail.String, completedAt); err != nil {
		return fmt.Errorf("BarrierService.HandleCommandAck: %w", err)
	}
	log.Printf("Thiết bị phản hồi lệnh %s: %s", cmd.ID, status)
	s.publishResult(cmd)
	return nil
}

func (s *BarrierService) publishResult(cmd *domain.BarrierCommand) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(domain.DomainEvent{
		EventID:       uuid.New().String(),
		Type:          domain.EventBarrierCommandResult,
		OccurredAt:    s.now().UTC(),
		SiteID:        cmd.SiteID,
		LaneID:        cmd.LaneID,
		CommandID:     cmd.ID,
		CommandStatus: string(cmd.Status),
		Detail:        cmd.Detail.String,
	})
}
