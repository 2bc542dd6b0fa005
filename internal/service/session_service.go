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
	"gopkg.in/guregu/null.v4"
)

var ErrEntryBlocked = errors.New("biển số nằm trong blacklist, từ chối cho vào")
var ErrPaymentMismatch = errors.New("số tiền thanh toán không khớp phí phải trả")
var ErrOverrideRequired = errors.New("session đang chờ thanh toán, cần override_payment để đóng cưỡng bức")

// SessionService điều phối vòng đời một lượt đỗ xe: vào -> chờ thanh toán
// -> thanh toán -> đóng. Mọi chuyển trạng thái đều đi qua ghi có điều kiện
// của SessionRepository, nên hai request đua nhau thì đúng một bên thắng.
type SessionService struct {
	sessionRepo  repository.SessionRepository
	ratePlanRepo repository.RatePlanRepository
	discountRepo repository.DiscountRepository
	eligibility  *EligibilityService
	barrierSvc   *BarrierService
	notifier     Notifier
	now          func() time.Time
}

func NewSessionService(sessionRepo repository.SessionRepository, ratePlanRepo repository.RatePlanRepository, discountRepo repository.DiscountRepository, eligibility *EligibilityService, barrierSvc *BarrierService, notifier Notifier) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		ratePlanRepo: ratePlanRepo,
		discountRepo: discountRepo,
		eligibility:  eligibility,
		barrierSvc:   barrierSvc,
		notifier:     notifier,
		now:          time.Now,
	}
}

// HandleEntryEvent xử lý sự kiện xe vào từ camera hoặc kiosk. Blacklist bị
// chặn tại cổng; VIP/membership được gắn cờ exempt ngay lúc vào để lúc ra
// khỏi phải tra lại.
func (s *SessionService) HandleEntryEvent(ctx context.Context, dto domain.EntryEventDTO) (*domain.ParkingSession, error) {
	plate := domain.NormalizePlate(dto.Plate)
	if plate == "" {
		return nil, errors.New("SessionService.HandleEntryEvent: biển số rỗng sau khi chuẩn hóa")
	}
	entryTime := s.parseEventTime(dto.EventTime)

	status, err := s.eligibility.Resolve(ctx, plate, entryTime)
	if err != nil {
		return nil, fmt.Errorf("SessionService.HandleEntryEvent: %w", err)
	}
	if status == domain.EligibilityBlocked {
		log.Printf("Chặn xe %s tại làn %s (blacklist)", plate, dto.LaneID)
		return nil, fmt.Errorf("%w: xe '%s'", ErrEntryBlocked, plate)
	}

	// Kiểm tra trước cho thông báo lỗi đẹp; ràng buộc unique trong store
	// mới là tuyến chặn double-open thật sự.
	if existing, err := s.sessionRepo.FindActiveByPlate(ctx, dto.SiteID, plate); err == nil {
		return nil, fmt.Errorf("%w: xe '%s' đang có session %d", repository.ErrDuplicateEntry, plate, existing.ID)
	} else if !errors.Is(err, repository.ErrNoActiveSession) {
		return nil, fmt.Errorf("SessionService.HandleEntryEvent: %w", err)
	}

	plan, err := s.ratePlanRepo.FindActiveBySite(ctx, dto.SiteID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.HandleEntryEvent: site %d chưa có biểu phí active: %w", dto.SiteID, err)
	}

	session := &domain.ParkingSession{
		SiteID:        dto.SiteID,
		Plate:         plate,
		EntryLaneID:   dto.LaneID,
		Status:        domain.SessionParking,
		Exempt:        status == domain.EligibilityExempt,
		RatePlanID:    plan.ID,
		EntryTime:     entryTime,
		PaymentStatus: domain.PaymentNone,
	}
	created, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("SessionService.HandleEntryEvent: %w", err)
	}
	log.Printf("Xe %s vào làn %s, session %d (exempt=%t, plan=%d)", plate, dto.LaneID, created.ID, created.Exempt, plan.ID)

	s.publish(domain.DomainEvent{
		EventID:    uuid.New().String(),
		Type:       domain.EventSessionOpened,
		OccurredAt: s.now().UTC(),
		SiteID:     created.SiteID,
		SessionID:  created.ID,
		Plate:      created.Plate,
		LaneID:     created.EntryLaneID,
	})

	// Lệnh mở rào lỗi thì session vẫn đứng: sổ lệnh đã ghi FAILED,
	// vận hành viên xử lý tay.
	correlation := fmt.Sprintf("session-%d-entry", created.ID)
	if _, err := s.barrierSvc.IssueCommand(ctx, dto.LaneID, domain.BarrierOpen, "cho xe vào", correlation); err != nil {
		log.Printf("Không mở được rào làn %s cho session %d: %v", dto.LaneID, created.ID, err)
	}

	return created, nil
}

// HandleExitEvent xử lý sự kiện xe ra: chốt giờ ra, tính phí, rồi hoặc đóng
// luôn (exempt / phí 0) hoặc chuyển sang chờ thanh toán. Hai sự kiện ra đua
// nhau cho cùng session thì bên thua nhận ErrInvalidTransition.
func (s *SessionService) HandleExitEvent(ctx context.Context, dto domain.ExitEventDTO) (*domain.ExitResultDTO, error) {
	exitTime := s.parseEventTime(dto.EventTime)

	var session *domain.ParkingSession
	var err error
	switch {
	case dto.SessionID != nil:
		session, err = s.sessionRepo.FindByID(ctx, *dto.SessionID)
	case dto.Plate != "":
		session, err = s.sessionRepo.FindActiveByPlate(ctx, dto.SiteID, domain.NormalizePlate(dto.Plate))
	default:
		return nil, errors.New("SessionService.HandleExitEvent: cần plate hoặc session_id")
	}
	if err != nil {
		return nil, fmt.Errorf("SessionService.HandleExitEvent: %w", err)
	}

	if session.Status != domain.SessionParking {
		return nil, fmt.Errorf("%w: session %d đang ở trạng thái '%s'", repository.ErrInvalidTransition, session.ID, session.Status)
	}

	if exitTime.Before(session.EntryTime) {
		log.Printf("Giờ ra %s sớm hơn giờ vào của session %d, kẹp về giờ vào", exitTime.Format(time.RFC3339), session.ID)
		exitTime = session.EntryTime
	}

	rawFee, discountTotal, finalFee, err := s.resolveFees(ctx, session, session.RatePlanID, exitTime)
	if err != nil {
		if errors.Is(err, ErrRateRuleInvalid) {
			s.quarantine(ctx, session, err)
		}
		return nil, fmt.Errorf("SessionService.HandleExitEvent: %w", err)
	}

	session.ExitLaneID.SetValid(dto.LaneID)
	session.ExitTime.SetValid(exitTime)
	session.RawFee = null.IntFrom(rawFee)
	session.DiscountTotal = discountTotal
	session.FinalFee = null.IntFrom(finalFee)

	if session.Exempt || finalFee == 0 {
		session.Status = domain.SessionClosed
		if session.Exempt {
			session.CloseReason.SetValid("exempt")
		}
		updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking)
		if err != nil {
			return nil, fmt.Errorf("SessionService.HandleExitEvent: %w", err)
		}
		log.Printf("Session %d đóng tại cổng ra (exempt=%t, phí=%d)", updated.ID, updated.Exempt, finalFee)
		s.publishClosed(updated)
		s.openExitBarrier(ctx, updated)
		return &domain.ExitResultDTO{Session: updated, FeeDue: 0}, nil
	}

	session.Status = domain.SessionExitPending
	session.PaymentStatus = domain.PaymentPending
	updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking)
	if err != nil {
		return nil, fmt.Errorf("SessionService.HandleExitEvent: %w", err)
	}
	log.Printf("Session %d chờ thanh toán %d (raw=%d, giảm=%d)", updated.ID, finalFee, rawFee, discountTotal)
	return &domain.ExitResultDTO{Session: updated, FeeDue: finalFee}, nil
}

// ConfirmPayment chốt thanh toán cho session đang chờ. Idempotent: xác nhận
// lần hai trên session đã thanh toán trả lại session hiện tại, không thu
// tiền lần nữa và không dội thêm lệnh mở rào.
func (s *SessionService) ConfirmPayment(ctx context.Context, sessionID int, amount int64) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ConfirmPayment: %w", err)
	}

	if session.PaymentStatus == domain.PaymentPaid {
		// Tiền đã chốt. Nếu lần trước chết giữa hai lần ghi (PAID đã vào
		// store nhưng bước đóng chưa chạy) thì làm nốt, không trả session kẹt.
		if session.Status == domain.SessionPaid {
			return s.closeSettled(ctx, session)
		}
		log.Printf("Session %d đã thanh toán, bỏ qua xác nhận trùng", sessionID)
		return session, nil
	}
	if session.Status != domain.SessionExitPending {
		return nil, fmt.Errorf("%w: session %d đang ở trạng thái '%s', không nhận thanh toán", repository.ErrInvalidTransition, sessionID, session.Status)
	}
	if !session.FinalFee.Valid || amount != session.FinalFee.Int64 {
		return nil, fmt.Errorf("%w: nhận %d, cần %d", ErrPaymentMismatch, amount, session.FinalFee.Int64)
	}

	session.Status = domain.SessionPaid
	session.PaymentStatus = domain.PaymentPaid
	session.PaidAmount = null.IntFrom(amount)
	updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionExitPending)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			// Thua race: nếu bên thắng cũng là thanh toán thì coi như
			// thành công idempotent, tiền chỉ bị trừ một lần. Bên thắng
			// có thể chưa kịp đóng, khi đó đóng giúp luôn.
			current, findErr := s.sessionRepo.FindByID(ctx, sessionID)
			if findErr == nil && current.PaymentStatus == domain.PaymentPaid {
				log.Printf("Session %d đã được thanh toán bởi request song song", sessionID)
				if current.Status == domain.SessionPaid {
					return s.closeSettled(ctx, current)
				}
				return current, nil
			}
		}
		return nil, fmt.Errorf("SessionService.ConfirmPayment: %w", err)
	}

	finalFee := updated.FinalFee.Int64
	s.publish(domain.DomainEvent{
		EventID:    uuid.New().String(),
		Type:       domain.EventPaymentSettled,
		OccurredAt: s.now().UTC(),
		SiteID:     updated.SiteID,
		SessionID:  updated.ID,
		Plate:      updated.Plate,
		FinalFee:   &finalFee,
	})

	// PAID là trạng thái thoáng qua: đóng ngay sau khi chốt tiền.
	updated.Status = domain.SessionClosed
	closed, err := s.sessionRepo.UpdateFromStatus(ctx, updated, domain.SessionPaid)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ConfirmPayment: %w", err)
	}
	log.Printf("Session %d thanh toán %d và đóng", closed.ID, amount)
	s.publishClosed(closed)
	s.openExitBarrier(ctx, closed)
	return closed, nil
}

// closeSettled làm nốt bước PAID -> CLOSED cho session đã chốt tiền, dùng khi
// lần xác nhận trước bị gián đoạn giữa hai lần ghi. Thua race với một bên
// khác cũng đang đóng thì lấy kết quả của bên thắng. Lệnh mở rào dùng chung
// correlation theo session nên chạy lại không dội lệnh.
func (s *SessionService) closeSettled(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	session.Status = domain.SessionClosed
	closed, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionPaid)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			current, findErr := s.sessionRepo.FindByID(ctx, session.ID)
			if findErr == nil && current.Status == domain.SessionClosed {
				return current, nil
			}
		}
		return nil, fmt.Errorf("SessionService.ConfirmPayment: %w", err)
	}
	log.Printf("Session %d hoàn tất bước đóng sau thanh toán bị gián đoạn", closed.ID)
	s.publishClosed(closed)
	s.openExitBarrier(ctx, closed)
	return closed, nil
}

// ForceClose cho vận hành viên đóng cưỡng bức một session chưa kết thúc.
// Session đang chờ thanh toán đòi cờ override_payment; khi override, phần
// thanh toán được đánh dấu hủy.
func (s *SessionService) ForceClose(ctx context.Context, sessionID int, dto domain.ForceCloseDTO) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ForceClose: %w", err)
	}
	if session.Status != domain.SessionParking && session.Status != domain.SessionExitPending {
		return nil, fmt.Errorf("%w: session %d đang ở trạng thái '%s', không đóng cưỡng bức được", repository.ErrInvalidTransition, sessionID, session.Status)
	}
	if session.PaymentStatus == domain.PaymentPending && !dto.OverridePayment {
		return nil, fmt.Errorf("%w: session %d", ErrOverrideRequired, sessionID)
	}

	if !session.ExitTime.Valid {
		session.ExitTime.SetValid(s.now().UTC())
	}
	if session.PaymentStatus == domain.PaymentPending {
		session.PaymentStatus = domain.PaymentCancelled
	}
	session.Status = domain.SessionClosed
	session.CloseReason.SetValid(dto.Reason)
	if dto.Note != "" {
		session.CloseNote.SetValid(dto.Note)
	}

	updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking, domain.SessionExitPending)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ForceClose: %w", err)
	}
	log.Printf("Session %d bị đóng cưỡng bức, lý do: %s", sessionID, dto.Reason)
	s.publishClosed(updated)
	s.openExitBarrier(ctx, updated)
	return updated, nil
}

// Recalculate tính lại phí của session theo lý do vận hành (sai biểu phí,
// khiếu nại...). Chỉ cho phép khi chưa thanh toán. Sổ giảm giá được fold lại
// nguyên thứ tự trên phí gốc mới, không ghi thêm dòng nào.
func (s *SessionService) Recalculate(ctx context.Context, sessionID int, dto domain.RecalculateDTO) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.Recalculate: %w", err)
	}
	if session.Status != domain.SessionParking && session.Status != domain.SessionExitPending {
		return nil, fmt.Errorf("%w: không tính lại phí sau khi session %d đã thanh toán hoặc đóng", repository.ErrInvalidTransition, sessionID)
	}

	planID := session.RatePlanID
	if dto.RatePlanID != nil {
		planID = *dto.RatePlanID
	}

	exitTime := s.now().UTC()
	if session.ExitTime.Valid {
		exitTime = session.ExitTime.Time
	}

	rawFee, discountTotal, finalFee, err := s.resolveFees(ctx, session, planID, exitTime)
	if err != nil {
		return nil, fmt.Errorf("SessionService.Recalculate: %w", err)
	}

	session.RatePlanID = planID
	session.RawFee = null.IntFrom(rawFee)
	session.DiscountTotal = discountTotal
	session.FinalFee = null.IntFrom(finalFee)

	updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking, domain.SessionExitPending)
	if err != nil {
		return nil, fmt.Errorf("SessionService.Recalculate: %w", err)
	}
	log.Printf("Tính lại phí session %d (lý do: %s): raw=%d, giảm=%d, phải trả=%d", sessionID, dto.Reason, rawFee, discountTotal, finalFee)
	return updated, nil
}

// ApplyDiscount áp một rule giảm giá lên session chưa thanh toán và ghi kết
// quả vào sổ append-only. Rule không stackable bị từ chối nếu sổ đã có dòng
// (ErrRuleConflict) và khi đó sổ không bị chạm vào.
func (s *SessionService) ApplyDiscount(ctx context.Context, sessionID int, dto domain.ApplyDiscountDTO) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}
	if session.Status != domain.SessionParking && session.Status != domain.SessionExitPending {
		return nil, fmt.Errorf("%w: không áp giảm giá khi session %d ở trạng thái '%s'", repository.ErrInvalidTransition, sessionID, session.Status)
	}

	rule, err := s.discountRepo.FindRuleByID(ctx, dto.DiscountRuleID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}
	if !rule.Active {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: rule %d không còn hiệu lực", rule.ID)
	}

	plan, err := s.ratePlanRepo.FindByID(ctx, session.RatePlanID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}

	exitTime := s.now().UTC()
	if session.ExitTime.Valid {
		exitTime = session.ExitTime.Time
	}
	rawFee, err := CalculateRawFee(session.EntryTime, exitTime, plan.Rules)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}

	existing, err := s.discountRepo.ListApplications(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}

	fc := FeeContext{EntryTime: session.EntryTime, ExitTime: exitTime, Rules: plan.Rules}
	outcome, err := ApplyDiscounts(rawFee, fc, existing, []domain.DiscountRequest{{Rule: *rule, Reason: dto.Reason}})
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}

	for i := range outcome.Applications {
		outcome.Applications[i].SessionID = sessionID
		if _, err := s.discountRepo.AppendApplication(ctx, &outcome.Applications[i]); err != nil {
			return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
		}
	}

	discountTotal := SumApplied(existing) + outcome.Total
	if discountTotal > rawFee {
		discountTotal = rawFee
	}
	finalFee := rawFee - discountTotal

	session.RawFee = null.IntFrom(rawFee)
	session.DiscountTotal = discountTotal
	session.FinalFee = null.IntFrom(finalFee)

	// Giảm về 0 khi đang chờ thanh toán thì đóng luôn, bỏ bước thu tiền.
	if session.Status == domain.SessionExitPending && finalFee == 0 {
		session.Status = domain.SessionClosed
		session.PaymentStatus = domain.PaymentNone
		updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionExitPending)
		if err != nil {
			return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
		}
		log.Printf("Session %d giảm hết phí (rule %d), đóng không thu tiền", sessionID, rule.ID)
		s.publishClosed(updated)
		s.openExitBarrier(ctx, updated)
		return updated, nil
	}

	updated, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking, domain.SessionExitPending)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ApplyDiscount: %w", err)
	}
	log.Printf("Áp rule %d cho session %d: giảm thêm %d, còn phải trả %d", rule.ID, sessionID, outcome.Total, finalFee)
	return updated, nil
}

func (s *SessionService) GetSession(ctx context.Context, id int) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SessionService.GetSession: %w", err)
	}
	return session, nil
}

func (s *SessionService) FindSessions(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	sessions, err := s.sessionRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("SessionService.FindSessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) ListDiscountApplications(ctx context.Context, sessionID int) ([]domain.DiscountApplication, error) {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("SessionService.ListDiscountApplications: %w", err)
	}
	apps, err := s.discountRepo.ListApplications(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SessionService.ListDiscountApplications: %w", err)
	}
	return apps, nil
}

// resolveFees tính phí gốc tại exitTime theo plan chỉ định rồi fold lại sổ
// giảm giá theo đúng thứ tự ghi. Sổ là nguồn sự thật về NHỮNG rule đã áp;
// giá trị tiền được tính lại trên phí gốc hiện tại.
func (s *SessionService) resolveFees(ctx context.Context, session *domain.ParkingSession, planID int, exitTime time.Time) (rawFee, discountTotal, finalFee int64, err error) {
	plan, err := s.ratePlanRepo.FindByID(ctx, planID)
	if err != nil {
		return 0, 0, 0, err
	}
	rawFee, err = CalculateRawFee(session.EntryTime, exitTime, plan.Rules)
	if err != nil {
		return 0, 0, 0, err
	}

	apps, err := s.discountRepo.ListApplications(ctx, session.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(apps) > 0 {
		requests := make([]domain.DiscountRequest, 0, len(apps))
		for _, app := range apps {
			rule, ruleErr := s.discountRepo.FindRuleByID(ctx, app.RuleID)
			if ruleErr != nil {
				return 0, 0, 0, ruleErr
			}
			requests = append(requests, domain.DiscountRequest{Rule: *rule, Reason: app.Reason.String})
		}
		fc := FeeContext{EntryTime: session.EntryTime, ExitTime: exitTime, Rules: plan.Rules}
		outcome, foldErr := ApplyDiscounts(rawFee, fc, nil, requests)
		if foldErr != nil {
			return 0, 0, 0, foldErr
		}
		discountTotal = outcome.Total
	}

	if discountTotal > rawFee {
		discountTotal = rawFee
	}
	finalFee = rawFee - discountTotal
	return rawFee, discountTotal, finalFee, nil
}

// quarantine chuyển session sang ERROR khi dữ liệu biểu phí hỏng đến mức
// không tính được tiền. ERROR là trạng thái cuối, vận hành viên xử lý tay.
func (s *SessionService) quarantine(ctx context.Context, session *domain.ParkingSession, cause error) {
	session.Status = domain.SessionError
	session.CloseNote.SetValid(cause.Error())
	if _, err := s.sessionRepo.UpdateFromStatus(ctx, session, domain.SessionParking, domain.SessionExitPending); err != nil {
		log.Printf("Không chuyển được session %d sang error: %v", session.ID, err)
		return
	}
	log.Printf("Session %d chuyển sang error: %v", session.ID, cause)
}

func (s *SessionService) publish(event domain.DomainEvent) {
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

func (s *SessionService) publishClosed(session *domain.ParkingSession) {
	finalFee := session.FinalFee.Int64
	s.publish(domain.DomainEvent{
		EventID:     uuid.New().String(),
		Type:        domain.EventSessionClosed,
		OccurredAt:  s.now().UTC(),
		SiteID:      session.SiteID,
		SessionID:   session.ID,
		Plate:       session.Plate,
		FinalFee:    &finalFee,
		CloseReason: session.CloseReason.String,
	})
}

// openExitBarrier mở rào cho xe ra sau khi session kết thúc. Correlation
// gắn theo session nên thanh toán trùng hay retry không dội thêm lệnh.
func (s *SessionService) openExitBarrier(ctx context.Context, session *domain.ParkingSession) {
	laneID := session.ExitLaneID.String
	if laneID == "" {
		barrier, err := s.barrierSvc.barrierRepo.FindFirstBySiteAndDirection(ctx, session.SiteID, "exit")
		if err != nil {
			log.Printf("Không tìm thấy rào chắn chiều ra của site %d: %v", session.SiteID, err)
			return
		}
		laneID = barrier.LaneID
	}
	correlation := fmt.Sprintf("session-%d-exit", session.ID)
	if _, err := s.barrierSvc.IssueCommand(ctx, laneID, domain.BarrierOpen, "cho xe ra", correlation); err != nil {
		log.Printf("Không mở được rào làn %s cho session %d: %v", laneID, session.ID, err)
	}
}

func (s *SessionService) parseEventTime(raw string) time.Time {
	if raw == "" {
		return s.now().UTC()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Printf("event_time '%s' không đúng định dạng RFC3339, dùng giờ server", raw)
		return s.now().UTC()
	}
	return t.UTC()
}
