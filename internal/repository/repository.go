package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")
var ErrNoActiveSession = errors.New("không tìm thấy phiên đỗ xe đang hoạt động cho thông tin cung cấp")

// ErrInvalidTransition: ghi có điều kiện thất bại vì session không còn ở trạng
// thái cho phép (đã terminal hoặc bị request khác chuyển trước). Đây là tuyến
// phòng thủ chính chống double-open và double-charge.
var ErrInvalidTransition = errors.New("session không ở trạng thái cho phép transition này")

// ErrRuleConflict: sổ giảm giá từ chối ghi thêm vì rule không stackable phải
// là rule duy nhất của session. Store kiểm tra ngay tại lúc ghi để hai request
// song song không cùng lách qua bước kiểm tra ở tầng service.
var ErrRuleConflict = errors.New("rule không stackable chỉ được áp dụng một mình")

type SessionRepository interface {
	// Create tạo session mới. Trả về ErrDuplicateEntry nếu (site, plate) đã có
	// session đang mở (ràng buộc unique trong store, không phải map trong bộ nhớ).
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSession, error)
	FindActiveByPlate(ctx context.Context, siteID int, plate string) (*domain.ParkingSession, error)
	// UpdateFromStatus ghi đè session theo kiểu read-modify-write nguyên tử:
	// chỉ thành công khi trạng thái hiện tại trong store nằm trong allowedFrom,
	// ngược lại trả về ErrInvalidTransition (hoặc ErrNotFound nếu id không tồn tại).
	UpdateFromStatus(ctx context.Context, session *domain.ParkingSession, allowedFrom ...domain.SessionStatus) (*domain.ParkingSession, error)
	Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error)
}

type RatePlanRepository interface {
	Create(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error)
	FindByID(ctx context.Context, id int) (*domain.RatePlan, error)
	FindActiveBySite(ctx context.Context, siteID int) (*domain.RatePlan, error)
	FindBySite(ctx context.Context, siteID int) ([]domain.RatePlan, error)
	// Activate đặt plan thành active và hạ active của mọi plan khác cùng site
	// trong cùng một transaction.
	Activate(ctx context.Context, siteID int, planID int) error
}

type DiscountRepository interface {
	FindRuleByID(ctx context.Context, id int) (*domain.DiscountRule, error)
	CreateRule(ctx context.Context, rule *domain.DiscountRule) (*domain.DiscountRule, error)
	// AppendApplication ghi thêm một dòng vào sổ giảm giá (append-only).
	// Kiểm tra-và-ghi nguyên tử: trả về ErrRuleConflict nếu sổ đã có dòng
	// không stackable, hoặc sổ đã có dòng bất kỳ và dòng mới không stackable.
	AppendApplication(ctx context.Context, app *domain.DiscountApplication) (*domain.DiscountApplication, error)
	ListApplications(ctx context.Context, sessionID int) ([]domain.DiscountApplication, error)
}

// EligibilityRepository là đường đọc cho blacklist / VIP / membership.
// Dữ liệu do lớp quản trị sở hữu; engine không ghi.
type EligibilityRepository interface {
	IsBlacklisted(ctx context.Context, plate string, at time.Time) (bool, error)
	IsVip(ctx context.Context, plate string, at time.Time) (bool, error)
	IsMemberActive(ctx context.Context, plate string, at time.Time) (bool, error)
}

type BarrierRepository interface {
	Create(ctx context.Context, barrier *domain.Barrier) (*domain.Barrier, error)
	FindByLaneID(ctx context.Context, laneID string) (*domain.Barrier, error)
	FindFirstBySiteAndDirection(ctx context.Context, siteID int, direction string) (*domain.Barrier, error)
	FindAll(ctx context.Context) ([]domain.Barrier, error)
}

type BarrierCommandRepository interface {
	Create(ctx context.Context, cmd *domain.BarrierCommand) (*domain.BarrierCommand, error)
	FindByID(ctx context.Context, id string) (*domain.BarrierCommand, error)
	// FindByCorrelation tìm lệnh gần nhất cùng (correlation_id, action) phát
	// sau thời điểm since — khóa idempotency của gateway.
	FindByCorrelation(ctx context.Context, correlationID string, action domain.BarrierAction, since time.Time) (*domain.BarrierCommand, error)
	UpdateStatus(ctx context.Context, id string, status domain.BarrierCommandStatus, detail string, completedAt time.Time) error
}

type SiteRepository interface {
	Create(ctx context.Context, site *domain.Site) (*domain.Site, error)
	FindByID(ctx context.Context, id int) (*domain.Site, error)
	FindAll(ctx context.Context) ([]domain.Site, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type DeviceEventsLogRepository interface {
	Create(ctx context.Context, event *domain.DeviceEventLog) error
}
