package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository/memory"
	"gopkg.in/guregu/null.v4"
)

type stubDriver struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (d *stubDriver) SendCommand(ctx context.Context, barrier domain.Barrier, action domain.BarrierAction, requestID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail {
		return errors.New("không publish được MQTT")
	}
	return nil
}

type testEnv struct {
	sessions    *memory.SessionStore
	plans       *memory.RatePlanStore
	discounts   *memory.DiscountStore
	eligibility *memory.EligibilityStore
	barriers    *memory.BarrierStore
	commands    *memory.BarrierCommandStore
	driver      *stubDriver
	service     *SessionService
	planID      int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		sessions:    memory.NewSessionStore(),
		plans:       memory.NewRatePlanStore(),
		discounts:   memory.NewDiscountStore(),
		eligibility: memory.NewEligibilityStore(),
		barriers:    memory.NewBarrierStore(),
		commands:    memory.NewBarrierCommandStore(),
		driver:      &stubDriver{},
	}

	plan, err := env.plans.Create(ctx, &domain.RatePlan{SiteID: 1, Name: "chuẩn", Active: true, Rules: standardRules})
	if err != nil {
		t.Fatalf("tạo plan: %v", err)
	}
	env.planID = plan.ID

	for _, b := range []domain.Barrier{
		{SiteID: 1, LaneID: "entry_1", Esp32ThingName: "esp32-entry-1", Direction: "entry"},
		{SiteID: 1, LaneID: "exit_1", Esp32ThingName: "esp32-exit-1", Direction: "exit"},
	} {
		barrier := b
		if _, err := env.barriers.Create(ctx, &barrier); err != nil {
			t.Fatalf("tạo barrier: %v", err)
		}
	}

	barrierSvc := NewBarrierService(env.barriers, env.commands, env.driver, NopNotifier{}, time.Second, 2*time.Minute)
	eligibilitySvc := NewEligibilityService(env.eligibility)
	env.service = NewSessionService(env.sessions, env.plans, env.discounts, eligibilitySvc, barrierSvc, NopNotifier{})
	return env
}

func (env *testEnv) enter(t *testing.T, plate string) *domain.ParkingSession {
	t.Helper()
	session, err := env.service.HandleEntryEvent(context.Background(), domain.EntryEventDTO{
		Plate:     plate,
		LaneID:    "entry_1",
		SiteID:    1,
		EventTime: "2026-03-01T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("HandleEntryEvent trả lỗi: %v", err)
	}
	return session
}

func (env *testEnv) exit(t *testing.T, plate string) *domain.ExitResultDTO {
	t.Helper()
	result, err := env.service.HandleExitEvent(context.Background(), domain.ExitEventDTO{
		Plate:     plate,
		SiteID:    1,
		LaneID:    "exit_1",
		EventTime: "2026-03-01T10:30:00Z",
	})
	if err != nil {
		t.Fatalf("HandleExitEvent trả lỗi: %v", err)
	}
	return result
}

func (env *testEnv) countExitOpens(sessionID int) int {
	count := 0
	for _, cmd := range env.commands.All() {
		if cmd.CorrelationID == correlationForExit(sessionID) && cmd.Action == domain.BarrierOpen {
			count++
		}
	}
	return count
}

func correlationForExit(sessionID int) string {
	return "session-" + strconv.Itoa(sessionID) + "-exit"
}

func TestEntryNormalizesPlateAndOpensBarrier(t *testing.T) {
	env := newTestEnv(t)

	session := env.enter(t, "51g-123.45")
	if session.Plate != "51G12345" {
		t.Errorf("biển số phải được chuẩn hóa, nhận '%s'", session.Plate)
	}
	if session.Status != domain.SessionParking {
		t.Errorf("trạng thái = %s, muốn parking", session.Status)
	}
	if session.RatePlanID != env.planID {
		t.Errorf("session phải gắn plan active lúc vào, nhận plan %d", session.RatePlanID)
	}

	cmds := env.commands.All()
	if len(cmds) != 1 || cmds[0].LaneID != "entry_1" || cmds[0].Action != domain.BarrierOpen {
		t.Fatalf("vào bãi phải phát đúng một lệnh mở rào làn vào, sổ lệnh: %+v", cmds)
	}
}

func TestEntryBlacklistedRejected(t *testing.T) {
	env := newTestEnv(t)
	env.eligibility.AddBlacklisted("30E99999")

	_, err := env.service.HandleEntryEvent(context.Background(), domain.EntryEventDTO{
		Plate: "30E-999.99", LaneID: "entry_1", SiteID: 1,
	})
	if !errors.Is(err, ErrEntryBlocked) {
		t.Fatalf("muốn ErrEntryBlocked, nhận %v", err)
	}
	if len(env.commands.All()) != 0 {
		t.Error("xe bị chặn không được phát lệnh mở rào")
	}
	if _, err := env.sessions.FindActiveByPlate(context.Background(), 1, "30E99999"); !errors.Is(err, repository.ErrNoActiveSession) {
		t.Error("xe bị chặn không được tạo session")
	}
}

func TestEntryBlacklistBeatsVip(t *testing.T) {
	env := newTestEnv(t)
	env.eligibility.AddBlacklisted("51G12345")
	env.eligibility.AddVip("51G12345")

	_, err := env.service.HandleEntryEvent(context.Background(), domain.EntryEventDTO{
		Plate: "51G12345", LaneID: "entry_1", SiteID: 1,
	})
	if !errors.Is(err, ErrEntryBlocked) {
		t.Fatalf("blacklist phải thắng VIP, nhận %v", err)
	}
}

func TestEntryDuplicateOpenSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.enter(t, "51G12345")

	_, err := env.service.HandleEntryEvent(context.Background(), domain.EntryEventDTO{
		Plate: "51G 123.45", LaneID: "entry_1", SiteID: 1,
	})
	if !errors.Is(err, repository.ErrDuplicateEntry) {
		t.Fatalf("muốn ErrDuplicateEntry, nhận %v", err)
	}
}

func TestExitThenPaymentClosesSession(t *testing.T) {
	env := newTestEnv(t)
	session := env.enter(t, "51G12345")

	result := env.exit(t, "51G12345")
	if result.FeeDue != 6500 {
		t.Errorf("phí 150 phút = %d, muốn 6500", result.FeeDue)
	}
	if result.Session.Status != domain.SessionExitPending {
		t.Errorf("trạng thái = %s, muốn exit_pending", result.Session.Status)
	}
	if result.Session.PaymentStatus != domain.PaymentPending {
		t.Errorf("payment_status = %s, muốn pending", result.Session.PaymentStatus)
	}

	// sai tiền thì từ chối, session đứng nguyên
	if _, err := env.service.ConfirmPayment(context.Background(), session.ID, 6000); !errors.Is(err, ErrPaymentMismatch) {
		t.Fatalf("muốn ErrPaymentMismatch, nhận %v", err)
	}

	closed, err := env.service.ConfirmPayment(context.Background(), session.ID, 6500)
	if err != nil {
		t.Fatalf("ConfirmPayment trả lỗi: %v", err)
	}
	if closed.Status != domain.SessionClosed {
		t.Errorf("trạng thái sau thanh toán = %s, muốn closed", closed.Status)
	}
	if closed.PaymentStatus != domain.PaymentPaid || closed.PaidAmount.Int64 != 6500 {
		t.Errorf("thanh toán không được ghi nhận đúng: %s / %d", closed.PaymentStatus, closed.PaidAmount.Int64)
	}
	if got := env.countExitOpens(session.ID); got != 1 {
		t.Errorf("phải có đúng một lệnh mở rào ra, nhận %d", got)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	session := env.enter(t, "51G12345")
	env.exit(t, "51G12345")

	if _, err := env.service.ConfirmPayment(context.Background(), session.ID, 6500); err != nil {
		t.Fatalf("thanh toán lần một trả lỗi: %v", err)
	}

	again, err := env.service.ConfirmPayment(context.Background(), session.ID, 6500)
	if err != nil {
		t.Fatalf("xác nhận trùng phải thành công idempotent, nhận %v", err)
	}
	if again.Status != domain.SessionClosed || again.PaidAmount.Int64 != 6500 {
		t.Errorf("session trả lại không đúng: %s / %d", again.Status, again.PaidAmount.Int64)
	}
	if got := env.countExitOpens(session.ID); got != 1 {
		t.Errorf("xác nhận trùng không được dội thêm lệnh mở rào, sổ có %d lệnh", got)
	}
}

func TestConfirmPaymentResumesInterruptedClose(t *testing.T) {
	env := newTestEnv(t)
	session := env.enter(t, "51G12345")
	env.exit(t, "51G12345")

	// mô phỏng process chết giữa hai lần ghi: tiền đã chốt nhưng bước đóng
	// chưa chạy, session nằm lại ở trạng thái paid
	stuck, err := env.sessions.FindByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	stuck.Status = domain.SessionPaid
	stuck.PaymentStatus = domain.PaymentPaid
	stuck.PaidAmount = null.IntFrom(6500)
	if _, err := env.sessions.UpdateFromStatus(context.Background(), stuck, domain.SessionExitPending); err != nil {
		t.Fatalf("UpdateFromStatus: %v", err)
	}

	closed, err := env.service.ConfirmPayment(context.Background(), session.ID, 6500)
	if err != nil {
		t.Fatalf("xác nhận lại phải làm nốt bước đóng, nhận %v", err)
	}
	if closed.Status != domain.SessionClosed {
		t.Errorf("trạng thái = %s, muốn closed", closed.Status)
	}
	if closed.PaymentStatus != domain.PaymentPaid || closed.PaidAmount.Int64 != 6500 {
		t.Errorf("thanh toán đã chốt không được ghi lại: %s / %d", closed.PaymentStatus, closed.PaidAmount.Int64)
	}
	if got := env.countExitOpens(session.ID); got != 1 {
		t.Errorf("phải có đúng một lệnh mở rào ra, nhận %d", got)
	}
}

func TestConcurrentPaymentChargesOnce(t *testing.T) {
	env := newTestEnv(t)
	session := env.enter(t, "51G12345")
	env.exit(t, "51G12345")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.service.ConfirmPayment(context.Background(), session.ID, 6500)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d phải thành công (bên thua nhận kết quả idempotent), nhận %v", i, err)
		}
	}

	final, err := env.sessions.FindByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if final.Status != domain.SessionClosed || final.PaidAmount.Int64 != 6500 {
		t.Errorf("session cuối không đúng: %s / %d", final.Status, final.PaidAmount.Int64)
	}
	if got := env.countExitOpens(session.ID); got != 1 {
		t.Errorf("hai thanh toán song song chỉ được một lệnh mở rào, nhận %d", got)
	}
}

func TestConcurrentExitEventsOneWins(t *testing.T) {
	env := newTestEnv(t)
	env.enter(t, "51G12345")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.service.HandleExitEvent(context.Background(), domain.ExitEventDTO{
				Plate: "51G12345", SiteID: 1, LaneID: "exit_1",
				EventTime: "2026-03-01T10:30:00Z",
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrInvalidTransition):
			lost++
		default:
			t.Errorf("lỗi không mong đợi: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("phải có đúng một bên thắng và một bên thua, nhận thắng=%d thua=%d", won, lost)
	}
}

func TestExemptVehicleClosesAtExit(t *testing.T) {
	env := newTestEnv(t)
	env.eligibility.AddVip("29A12345")

	session := env.enter(t, "29A-123.45")
	if !session.Exempt {
		t.Fatal("xe VIP phải được gắn cờ exempt lúc vào")
	}

	result := env.exit(t, "29A12345")
	if result.FeeDue != 0 {
		t.Errorf("xe exempt không phải trả phí, nhận %d", result.FeeDue)
	}
	if result.Session.Status != domain.SessionClosed {
		t.Errorf("trạng thái = %s, muốn closed ngay tại cổng ra", result.Session.Status)
	}
	if result.Session.CloseReason.String != "exempt" {
		t.Errorf("close_reason = '%s', muốn 'exempt'", result.Session.CloseReason.String)
	}
	if got := env.countExitOpens(session.ID); got != 1 {
		t.Errorf("xe exempt vẫn phải được mở rào ra, nhận %d lệnh", got)
	}
}

func TestZeroFeeExitClosesWithoutPayment(t *testing.T) {
	env := newTestEnv(t)
	env.enter(t, "51G12345")

	// ra trong thời gian miễn phí
	result, err := env.service.HandleExitEvent(context.Background(), domain.ExitEventDTO{
		Plate: "51G12345", SiteID: 1, LaneID: "exit_1",
		EventTime: "2026-03-01T08:05:00Z",
	})
	if err != nil {
		t.Fatalf("HandleExitEvent trả lỗi: %v", err)
	}
	if result.FeeDue != 0 || result.Session.Status != domain.SessionClosed {
		t.Errorf("phí 0 phải đóng luôn không qua thanh toán: fee=%d status=%s", result.FeeDue, result.Session.Status)
	}
	if result.Session.PaymentStatus != domain.PaymentNone {
		t.Errorf("payment_status = %s, muốn none", result.Session.PaymentStatus)
	}
}

func TestForceClose(t *testing.T) {
	env := newTestEnv(t)

	t.Run("đang chờ thanh toán cần override", func(t *testing.T) {
		session := env.enter(t, "51G12345")
		env.exit(t, "51G12345")

		_, err := env.service.ForceClose(context.Background(), session.ID, domain.ForceCloseDTO{Reason: "mất vé"})
		if !errors.Is(err, ErrOverrideRequired) {
			t.Fatalf("muốn ErrOverrideRequired, nhận %v", err)
		}

		closed, err := env.service.ForceClose(context.Background(), session.ID, domain.ForceCloseDTO{
			Reason: "mất vé", Note: "ca trưởng duyệt", OverridePayment: true,
		})
		if err != nil {
			t.Fatalf("ForceClose trả lỗi: %v", err)
		}
		if closed.Status != domain.SessionClosed || closed.PaymentStatus != domain.PaymentCancelled {
			t.Errorf("force close không đúng: %s / %s", closed.Status, closed.PaymentStatus)
		}
		if closed.CloseReason.String != "mất vé" {
			t.Errorf("close_reason = '%s'", closed.CloseReason.String)
		}
	})

	t.Run("session đã đóng thì từ chối", func(t *testing.T) {
		session := env.enter(t, "30A11111")
		env.exit(t, "30A11111")
		if _, err := env.service.ConfirmPayment(context.Background(), session.ID, 6500); err != nil {
			t.Fatalf("ConfirmPayment: %v", err)
		}

		_, err := env.service.ForceClose(context.Background(), session.ID, domain.ForceCloseDTO{Reason: "nhầm", OverridePayment: true})
		if !errors.Is(err, repository.ErrInvalidTransition) {
			t.Fatalf("trạng thái cuối bất biến, muốn ErrInvalidTransition, nhận %v", err)
		}
	})
}

func TestRecalculate(t *testing.T) {
	env := newTestEnv(t)
	session := env.enter(t, "51G12345")
	env.exit(t, "51G12345")

	cheaper, err := env.plans.Create(context.Background(), &domain.RatePlan{
		SiteID: 1, Name: "khuyến mãi",
		Rules: domain.RatePlanRules{FreeMinutes: 30, BaseFee: 500, BaseMinutes: 60, AdditionalFee: 100, AdditionalMinutes: 30},
	})
	if err != nil {
		t.Fatalf("tạo plan: %v", err)
	}

	// 150 phút, plan mới: billable 120, 500 + ceil(60/30)*100 = 700
	updated, err := env.service.Recalculate(context.Background(), session.ID, domain.RecalculateDTO{
		RatePlanID: &cheaper.ID, Reason: "khách khiếu nại áp sai biểu phí",
	})
	if err != nil {
		t.Fatalf("Recalculate trả lỗi: %v", err)
	}
	if updated.FinalFee.Int64 != 700 {
		t.Errorf("phí sau tính lại = %d, muốn 700", updated.FinalFee.Int64)
	}
	if updated.RatePlanID != cheaper.ID {
		t.Errorf("session phải gắn plan mới %d, nhận %d", cheaper.ID, updated.RatePlanID)
	}

	if _, err := env.service.ConfirmPayment(context.Background(), session.ID, 700); err != nil {
		t.Fatalf("ConfirmPayment sau recalculate: %v", err)
	}

	if _, err := env.service.Recalculate(context.Background(), session.ID, domain.RecalculateDTO{Reason: "muộn rồi"}); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("không được tính lại sau thanh toán, nhận %v", err)
	}
}

func TestApplyDiscountLifecycle(t *testing.T) {
	env := newTestEnv(t)

	amountRule, _ := env.discounts.CreateRule(context.Background(), &domain.DiscountRule{
		Name: "voucher cửa hàng", Type: domain.DiscountAmount, Value: 1000, Stackable: true, Active: true,
	})
	soleRule, _ := env.discounts.CreateRule(context.Background(), &domain.DiscountRule{
		Name: "miễn phí sự kiện", Type: domain.DiscountFreeAll, Stackable: false, Active: true,
	})

	t.Run("áp và cộng dồn trên sổ", func(t *testing.T) {
		session := env.enter(t, "51G12345")
		env.exit(t, "51G12345")

		updated, err := env.service.ApplyDiscount(context.Background(), session.ID, domain.ApplyDiscountDTO{
			DiscountRuleID: amountRule.ID, Reason: "voucher",
		})
		if err != nil {
			t.Fatalf("ApplyDiscount trả lỗi: %v", err)
		}
		if updated.FinalFee.Int64 != 5500 {
			t.Errorf("phí sau giảm = %d, muốn 5500", updated.FinalFee.Int64)
		}

		// rule không stackable bị từ chối khi sổ đã có dòng, sổ không đổi
		if _, err := env.service.ApplyDiscount(context.Background(), session.ID, domain.ApplyDiscountDTO{
			DiscountRuleID: soleRule.ID,
		}); !errors.Is(err, ErrRuleConflict) {
			t.Fatalf("muốn ErrRuleConflict, nhận %v", err)
		}
		apps, _ := env.discounts.ListApplications(context.Background(), session.ID)
		if len(apps) != 1 {
			t.Errorf("sổ phải còn nguyên một dòng sau khi từ chối, nhận %d", len(apps))
		}
	})

	t.Run("free_all giảm hết thì đóng luôn", func(t *testing.T) {
		session := env.enter(t, "43A55555")
		env.exit(t, "43A55555")

		updated, err := env.service.ApplyDiscount(context.Background(), session.ID, domain.ApplyDiscountDTO{
			DiscountRuleID: soleRule.ID, Reason: "khách mời sự kiện",
		})
		if err != nil {
			t.Fatalf("ApplyDiscount trả lỗi: %v", err)
		}
		if updated.Status != domain.SessionClosed || updated.FinalFee.Int64 != 0 {
			t.Errorf("giảm hết phí phải đóng session: status=%s fee=%d", updated.Status, updated.FinalFee.Int64)
		}
		if got := env.countExitOpens(session.ID); got != 1 {
			t.Errorf("đóng do miễn phí vẫn phải mở rào ra, nhận %d lệnh", got)
		}
	})
}

func TestDiscountLedgerRejectsConflictingAppend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.discounts.AppendApplication(ctx, &domain.DiscountApplication{
		SessionID: 7, RuleID: 1, RuleType: domain.DiscountAmount, Stackable: true, AppliedValue: 1000,
	}); err != nil {
		t.Fatalf("dòng stackable đầu tiên phải ghi được: %v", err)
	}

	// sổ đã có dòng thì dòng không stackable bị chặn ngay tại store
	if _, err := env.discounts.AppendApplication(ctx, &domain.DiscountApplication{
		SessionID: 7, RuleID: 2, RuleType: domain.DiscountFreeAll, Stackable: false, AppliedValue: 5000,
	}); !errors.Is(err, ErrRuleConflict) {
		t.Fatalf("muốn ErrRuleConflict, nhận %v", err)
	}

	// chiều ngược lại: dòng không stackable đã nằm trên sổ chặn mọi dòng mới
	if _, err := env.discounts.AppendApplication(ctx, &domain.DiscountApplication{
		SessionID: 8, RuleID: 2, RuleType: domain.DiscountFreeAll, Stackable: false, AppliedValue: 5000,
	}); err != nil {
		t.Fatalf("dòng không stackable trên sổ trống phải ghi được: %v", err)
	}
	if _, err := env.discounts.AppendApplication(ctx, &domain.DiscountApplication{
		SessionID: 8, RuleID: 1, RuleType: domain.DiscountAmount, Stackable: true, AppliedValue: 1000,
	}); !errors.Is(err, ErrRuleConflict) {
		t.Fatalf("muốn ErrRuleConflict, nhận %v", err)
	}
}

func TestApplyDiscountConcurrentNonStackable(t *testing.T) {
	env := newTestEnv(t)
	amountRule, _ := env.discounts.CreateRule(context.Background(), &domain.DiscountRule{
		Name: "voucher cửa hàng", Type: domain.DiscountAmount, Value: 1000, Stackable: true, Active: true,
	})
	soleRule, _ := env.discounts.CreateRule(context.Background(), &domain.DiscountRule{
		Name: "miễn phí sự kiện", Type: domain.DiscountFreeAll, Stackable: false, Active: true,
	})
	session := env.enter(t, "51G12345")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int{amountRule.ID, soleRule.ID} {
		wg.Add(1)
		go func(i, ruleID int) {
			defer wg.Done()
			_, errs[i] = env.service.ApplyDiscount(context.Background(), session.ID, domain.ApplyDiscountDTO{DiscountRuleID: ruleID})
		}(i, id)
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, ErrRuleConflict):
			conflicts++
		default:
			t.Errorf("lỗi không mong đợi: %v", err)
		}
	}
	if conflicts != 1 {
		t.Errorf("phải có đúng một bên bị từ chối, nhận %d", conflicts)
	}

	// sổ không bao giờ được chứa dòng không stackable kèm dòng khác
	apps, err := env.discounts.ListApplications(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("sổ phải có đúng một dòng sau hai request song song, nhận %d", len(apps))
	}

	// và refold lúc xe ra không được kẹt vì sổ hỏng
	if _, err := env.service.HandleExitEvent(context.Background(), domain.ExitEventDTO{
		Plate: "51G12345", SiteID: 1, LaneID: "exit_1",
		EventTime: "2026-03-01T10:30:00Z",
	}); err != nil {
		t.Fatalf("HandleExitEvent sau khi áp giảm giá song song trả lỗi: %v", err)
	}
}
