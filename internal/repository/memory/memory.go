// Package memory cung cấp các repository chạy trong bộ nhớ, cùng ngữ nghĩa với
// bản postgresql (ràng buộc một session đang mở cho mỗi biển số, ghi có điều
// kiện theo trạng thái). Dùng cho test và chạy thử không cần DB.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

type SessionStore struct {
	mu       sync.Mutex
	nextID   int
	sessions map[int]domain.ParkingSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{nextID: 1, sessions: make(map[int]domain.ParkingSession)}
}

func isOpen(status domain.SessionStatus) bool {
	for _, st := range domain.OpenSessionStatuses {
		if status == st {
			return true
		}
	}
	return false
}

func (s *SessionStore) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.SiteID == session.SiteID && existing.Plate == session.Plate && isOpen(existing.Status) {
			return nil, fmt.Errorf("%w: xe '%s' đã có phiên đang mở tại site %d",
				repository.ErrDuplicateEntry, session.Plate, session.SiteID)
		}
	}

	now := time.Now().UTC()
	session.ID = s.nextID
	s.nextID++
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[session.ID] = *session

	copied := *session
	return &copied, nil
}

func (s *SessionStore) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *SessionStore) FindActiveByPlate(ctx context.Context, siteID int, plate string) (*domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.SiteID == siteID && session.Plate == plate && isOpen(session.Status) {
			copied := session
			return &copied, nil
		}
	}
	return nil, repository.ErrNoActiveSession
}

func (s *SessionStore) UpdateFromStatus(ctx context.Context, session *domain.ParkingSession, allowedFrom ...domain.SessionStatus) (*domain.ParkingSession, error) {
	if len(allowedFrom) == 0 {
		return nil, fmt.Errorf("SessionStore.UpdateFromStatus: thiếu danh sách trạng thái cho phép")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, st := range allowedFrom {
		if current.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: trạng thái hiện tại '%s', yêu cầu một trong %v",
			repository.ErrInvalidTransition, current.Status, allowedFrom)
	}

	session.CreatedAt = current.CreatedAt
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = *session

	copied := *session
	return &copied, nil
}

func (s *SessionStore) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.ParkingSession
	for _, session := range s.sessions {
		if filter.SiteID != nil && session.SiteID != *filter.SiteID {
			continue
		}
		if filter.Plate != nil && session.Plate != domain.NormalizePlate(*filter.Plate) {
			continue
		}
		if filter.Status != nil && string(session.Status) != *filter.Status {
			continue
		}
		result = append(result, session)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntryTime.After(result[j].EntryTime) })
	return result, nil
}

type RatePlanStore struct {
	mu     sync.Mutex
	nextID int
	plans  map[int]domain.RatePlan
}

func NewRatePlanStore() *RatePlanStore {
	return &RatePlanStore{nextID: 1, plans: make(map[int]domain.RatePlan)}
}

func (s *RatePlanStore) Create(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan.ID = s.nextID
	s.nextID++
	s.plans[plan.ID] = *plan
	copied := *plan
	return &copied, nil
}

func (s *RatePlanStore) FindByID(ctx context.Context, id int) (*domain.RatePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &plan, nil
}

func (s *RatePlanStore) FindActiveBySite(ctx context.Context, siteID int) (*domain.RatePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, plan := range s.plans {
		if plan.SiteID == siteID && plan.Active {
			copied := plan
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *RatePlanStore) FindBySite(ctx context.Context, siteID int) ([]domain.RatePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var plans []domain.RatePlan
	for _, plan := range s.plans {
		if plan.SiteID == siteID {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

func (s *RatePlanStore) Activate(ctx context.Context, siteID int, planID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.plans[planID]
	if !ok || target.SiteID != siteID {
		return repository.ErrNotFound
	}
	for id, plan := range s.plans {
		if plan.SiteID == siteID {
			plan.Active = id == planID
			s.plans[id] = plan
		}
	}
	return nil
}

type DiscountStore struct {
	mu         sync.Mutex
	nextRuleID int
	nextAppID  int
	rules      map[int]domain.DiscountRule
	apps       map[int][]domain.DiscountApplication // theo session id
}

func NewDiscountStore() *DiscountStore {
	return &DiscountStore{
		nextRuleID: 1,
		nextAppID:  1,
		rules:      make(map[int]domain.DiscountRule),
		apps:       make(map[int][]domain.DiscountApplication),
	}
}

func (s *DiscountStore) FindRuleByID(ctx context.Context, id int) (*domain.DiscountRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rule, nil
}

func (s *DiscountStore) CreateRule(ctx context.Context, rule *domain.DiscountRule) (*domain.DiscountRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.ID = s.nextRuleID
	s.nextRuleID++
	s.rules[rule.ID] = *rule
	copied := *rule
	return &copied, nil
}

func (s *DiscountStore) AppendApplication(ctx context.Context, app *domain.DiscountApplication) (*domain.DiscountApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// kiểm tra sole-rule ngay dưới lock, cùng ngữ nghĩa với bản postgresql
	for _, existing := range s.apps[app.SessionID] {
		if !existing.Stackable || !app.Stackable {
			return nil, fmt.Errorf("%w: session %d", repository.ErrRuleConflict, app.SessionID)
		}
	}

	app.ID = s.nextAppID
	s.nextAppID++
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}
	s.apps[app.SessionID] = append(s.apps[app.SessionID], *app)
	copied := *app
	return &copied, nil
}

func (s *DiscountStore) ListApplications(ctx context.Context, sessionID int) ([]domain.DiscountApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps := s.apps[sessionID]
	result := make([]domain.DiscountApplication, len(apps))
	copy(result, apps)
	return result, nil
}

// EligibilityStore giữ các tập biển số cho test và chạy thử.
type EligibilityStore struct {
	mu          sync.RWMutex
	blacklist   map[string]bool
	vips        map[string]bool
	memberships map[string][]domain.Membership
}

func NewEligibilityStore() *EligibilityStore {
	return &EligibilityStore{
		blacklist:   make(map[string]bool),
		vips:        make(map[string]bool),
		memberships: make(map[string][]domain.Membership),
	}
}

func (s *EligibilityStore) AddBlacklisted(plate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[domain.NormalizePlate(plate)] = true
}

func (s *EligibilityStore) AddVip(plate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vips[domain.NormalizePlate(plate)] = true
}

func (s *EligibilityStore) AddMembership(m domain.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plate := domain.NormalizePlate(m.Plate)
	s.memberships[plate] = append(s.memberships[plate], m)
}

func (s *EligibilityStore) IsBlacklisted(ctx context.Context, plate string, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blacklist[plate], nil
}

func (s *EligibilityStore) IsVip(ctx context.Context, plate string, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vips[plate], nil
}

func (s *EligibilityStore) IsMemberActive(ctx context.Context, plate string, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships[plate] {
		if m.ActiveAt(at) {
			return true, nil
		}
	}
	return false, nil
}

type BarrierStore struct {
	mu       sync.Mutex
	nextID   int
	barriers map[int]domain.Barrier
}

func NewBarrierStore() *BarrierStore {
	return &BarrierStore{nextID: 1, barriers: make(map[int]domain.Barrier)}
}

func (s *BarrierStore) Create(ctx context.Context, barrier *domain.Barrier) (*domain.Barrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.barriers {
		if existing.LaneID == barrier.LaneID {
			return nil, fmt.Errorf("%w: làn '%s' đã có rào chắn", repository.ErrDuplicateEntry, barrier.LaneID)
		}
	}
	barrier.ID = s.nextID
	s.nextID++
	s.barriers[barrier.ID] = *barrier
	copied := *barrier
	return &copied, nil
}

func (s *BarrierStore) FindByLaneID(ctx context.Context, laneID string) (*domain.Barrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, barrier := range s.barriers {
		if barrier.LaneID == laneID {
			copied := barrier
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *BarrierStore) FindFirstBySiteAndDirection(ctx context.Context, siteID int, direction string) (*domain.Barrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.Barrier
	for _, barrier := range s.barriers {
		if barrier.SiteID == siteID && barrier.Direction == direction {
			if found == nil || barrier.ID < found.ID {
				copied := barrier
				found = &copied
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *BarrierStore) FindAll(ctx context.Context) ([]domain.Barrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var barriers []domain.Barrier
	for _, barrier := range s.barriers {
		barriers = append(barriers, barrier)
	}
	sort.Slice(barriers, func(i, j int) bool { return barriers[i].ID < barriers[j].ID })
	return barriers, nil
}

type BarrierCommandStore struct {
	mu       sync.Mutex
	commands map[string]domain.BarrierCommand
	order    []string
}

func NewBarrierCommandStore() *BarrierCommandStore {
	return &BarrierCommandStore{commands: make(map[string]domain.BarrierCommand)}
}

func (s *BarrierCommandStore) Create(ctx context.Context, cmd *domain.BarrierCommand) (*domain.BarrierCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}
	s.commands[cmd.ID] = *cmd
	s.order = append(s.order, cmd.ID)
	copied := *cmd
	return &copied, nil
}

func (s *BarrierCommandStore) FindByID(ctx context.Context, id string) (*domain.BarrierCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, ok := s.commands[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cmd, nil
}

func (s *BarrierCommandStore) FindByCorrelation(ctx context.Context, correlationID string, action domain.BarrierAction, since time.Time) (*domain.BarrierCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// duyệt ngược để lấy lệnh mới nhất
	for i := len(s.order) - 1; i >= 0; i-- {
		cmd := s.commands[s.order[i]]
		if cmd.CorrelationID == correlationID && cmd.Action == action && !cmd.IssuedAt.Before(since) {
			copied := cmd
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *BarrierCommandStore) UpdateStatus(ctx context.Context, id string, status domain.BarrierCommandStatus, detail string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, ok := s.commands[id]
	if !ok {
		return repository.ErrNotFound
	}
	cmd.Status = status
	if detail != "" {
		cmd.Detail.SetValid(detail)
	}
	cmd.CompletedAt.SetValid(completedAt)
	s.commands[id] = cmd
	return nil
}

// All trả về toàn bộ sổ lệnh theo thứ tự phát, phục vụ kiểm tra trong test.
func (s *BarrierCommandStore) All() []domain.BarrierCommand {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.BarrierCommand, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.commands[id])
	}
	return result
}
