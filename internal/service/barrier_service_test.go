package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository/memory"
)

func newBarrierEnv(t *testing.T, driver *stubDriver) (*BarrierService, *memory.BarrierCommandStore) {
	t.Helper()
	ctx := context.Background()

	barriers := memory.NewBarrierStore()
	for _, b := range []domain.Barrier{
		{SiteID: 1, LaneID: "entry_1", Esp32ThingName: "esp32-entry-1", Direction: "entry"},
		{SiteID: 1, LaneID: "exit_1", Esp32ThingName: "esp32-exit-1", Direction: "exit"},
		{SiteID: 2, LaneID: "entry_2", Esp32ThingName: "esp32-entry-2", Direction: "entry"},
	} {
		barrier := b
		if _, err := barriers.Create(ctx, &barrier); err != nil {
			t.Fatalf("tạo barrier: %v", err)
		}
	}

	commands := memory.NewBarrierCommandStore()
	svc := NewBarrierService(barriers, commands, driver, NopNotifier{}, time.Second, 2*time.Minute)
	return svc, commands
}

func TestIssueCommandRecordsLedger(t *testing.T) {
	driver := &stubDriver{}
	svc, commands := newBarrierEnv(t, driver)

	cmd, err := svc.IssueCommand(context.Background(), "entry_1", domain.BarrierOpen, "cho xe vào", "session-7-entry")
	if err != nil {
		t.Fatalf("IssueCommand trả lỗi: %v", err)
	}
	if cmd.Status != domain.CommandExecuted {
		t.Errorf("trạng thái = %s, muốn executed", cmd.Status)
	}
	if !cmd.CompletedAt.Valid {
		t.Error("lệnh hoàn tất phải có completed_at")
	}

	ledger := commands.All()
	if len(ledger) != 1 {
		t.Fatalf("sổ lệnh phải có một dòng, nhận %d", len(ledger))
	}
	if ledger[0].CorrelationID != "session-7-entry" || ledger[0].Esp32Thing != "esp32-entry-1" {
		t.Errorf("dòng sổ không đúng: %+v", ledger[0])
	}
}

func TestIssueCommandUnknownLane(t *testing.T) {
	svc, _ := newBarrierEnv(t, &stubDriver{})

	_, err := svc.IssueCommand(context.Background(), "lane_khong_ton_tai", domain.BarrierOpen, "test", "")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("muốn ErrNotFound, nhận %v", err)
	}
}

func TestIssueCommandIdempotency(t *testing.T) {
	driver := &stubDriver{}
	svc, commands := newBarrierEnv(t, driver)

	first, err := svc.IssueCommand(context.Background(), "entry_1", domain.BarrierOpen, "cho xe vào", "session-7-entry")
	if err != nil {
		t.Fatalf("lệnh đầu trả lỗi: %v", err)
	}

	second, err := svc.IssueCommand(context.Background(), "entry_1", domain.BarrierOpen, "retry", "session-7-entry")
	if err != nil {
		t.Fatalf("lệnh trùng trả lỗi: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("lệnh trùng phải trả lại dòng sổ cũ, nhận lệnh mới %s", second.ID)
	}
	if driver.calls != 1 {
		t.Errorf("phần cứng chỉ được gọi một lần, nhận %d", driver.calls)
	}
	if len(commands.All()) != 1 {
		t.Errorf("sổ lệnh chỉ được một dòng, nhận %d", len(commands.All()))
	}

	// khác action thì không bị hấp thụ
	closeCmd, err := svc.IssueCommand(context.Background(), "entry_1", domain.BarrierClose, "đóng lại", "session-7-entry")
	if err != nil {
		t.Fatalf("lệnh đóng trả lỗi: %v", err)
	}
	if closeCmd.ID == first.ID {
		t.Error("lệnh khác action phải là lệnh mới")
	}
}

func TestIssueCommandFailureRecorded(t *testing.T) {
	driver := &stubDriver{fail: true}
	svc, commands := newBarrierEnv(t, driver)

	cmd, err := svc.IssueCommand(context.Background(), "exit_1", domain.BarrierOpen, "cho xe ra", "session-9-exit")
	if !errors.Is(err, ErrBarrierCommandFailed) {
		t.Fatalf("muốn ErrBarrierCommandFailed, nhận %v", err)
	}
	if cmd == nil || cmd.Status != domain.CommandFailed {
		t.Fatalf("lệnh thất bại vẫn phải nằm trên sổ với trạng thái failed: %+v", cmd)
	}
	if !cmd.Detail.Valid || cmd.Detail.String == "" {
		t.Error("lệnh thất bại phải ghi chi tiết lỗi")
	}
	if len(commands.All()) != 1 {
		t.Errorf("sổ lệnh phải giữ dòng thất bại, nhận %d dòng", len(commands.All()))
	}
}

func TestEmergencyOpenAllAggregatesFailures(t *testing.T) {
	driver := &stubDriver{}
	svc, _ := newBarrierEnv(t, driver)

	result, err := svc.EmergencyOpenAll(context.Background(), "cháy tầng hầm")
	if err != nil {
		t.Fatalf("EmergencyOpenAll trả lỗi: %v", err)
	}
	if len(result.Executed) != 3 || len(result.Failed) != 0 {
		t.Errorf("mọi rào phải mở: executed=%v failed=%v", result.Executed, result.Failed)
	}

	// bấm lại ngay trong cửa sổ idempotency: không dội lệnh xuống thiết bị
	callsBefore := driver.calls
	result2, err := svc.EmergencyOpenAll(context.Background(), "cháy tầng hầm")
	if err != nil {
		t.Fatalf("EmergencyOpenAll lần hai trả lỗi: %v", err)
	}
	if len(result2.Executed) != 3 {
		t.Errorf("lần hai vẫn báo thành công đủ các làn, nhận %v", result2.Executed)
	}
	if driver.calls != callsBefore {
		t.Errorf("lần hai không được gọi lại phần cứng, calls %d -> %d", callsBefore, driver.calls)
	}
}

func TestEmergencyOpenAllPartialFailure(t *testing.T) {
	driver := &stubDriver{fail: true}
	svc, _ := newBarrierEnv(t, driver)

	result, err := svc.EmergencyOpenAll(context.Background(), "diễn tập")
	if err != nil {
		t.Fatalf("lỗi thiết bị không được làm hỏng cả loạt: %v", err)
	}
	if len(result.Executed) != 0 || len(result.Failed) != 3 {
		t.Errorf("mọi thiết bị đều lỗi: executed=%v failed=%v", result.Executed, result.Failed)
	}
	for lane, detail := range result.Failed {
		if detail == "" {
			t.Errorf("làn %s thiếu chi tiết lỗi", lane)
		}
	}
}

func TestHandleCommandAckOverridesStatus(t *testing.T) {
	driver := &stubDriver{}
	svc, commands := newBarrierEnv(t, driver)

	cmd, err := svc.IssueCommand(context.Background(), "entry_1", domain.BarrierOpen, "cho xe vào", "")
	if err != nil {
		t.Fatalf("IssueCommand: %v", err)
	}

	// publish thành công nhưng thiết bị báo servo kẹt
	err = svc.HandleCommandAck(context.Background(), domain.DeviceCommandAckEvent{
		Status: "failed", RequestID: cmd.ID, Detail: "servo kẹt",
	})
	if err != nil {
		t.Fatalf("HandleCommandAck trả lỗi: %v", err)
	}

	stored, err := commands.FindByID(context.Background(), cmd.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Status != domain.CommandFailed || stored.Detail.String != "servo kẹt" {
		t.Errorf("ack failed phải ghi đè trạng thái: %+v", stored)
	}
}
