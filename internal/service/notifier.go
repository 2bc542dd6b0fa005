package service

import "github.com/onedayonepaper/parkflow-sub000/internal/domain"

// Notifier đẩy domain event ra ngoài (websocket hub, log...). Implementation
// không được block: hub chuyển tiếp qua channel, client chậm bị bỏ qua.
type Notifier interface {
	Publish(event domain.DomainEvent)
}

// NopNotifier dùng cho test và cho cấu hình không bật realtime.
type NopNotifier struct{}

func (NopNotifier) Publish(domain.DomainEvent) {}
