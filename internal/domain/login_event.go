package domain

import "time"

// LoginEvent is an audit record written after a successful login.
type LoginEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginEventRepository interface {
	Create(event *LoginEvent) error
	ListRecent(limit, offset int) ([]*LoginEvent, error)
}
