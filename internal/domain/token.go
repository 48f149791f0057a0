package domain

import "time"

// RefreshToken is a store-backed, single-use credential. Only a sha256 hash
// of the opaque value is persisted; the raw value travels to the client once.
// At most one live record exists per user: login deletes any prior record
// before creating a new one, and refresh always consumes the presented
// record. Records are never updated in place.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the record's expiry is at or before now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

type RefreshTokenRepository interface {
	Create(token *RefreshToken) error
	GetByUserID(userID int64) (*RefreshToken, error)
	// Consume atomically deletes the record matching tokenHash and returns
	// it, or (nil, nil) when no record matches. Two concurrent calls with
	// the same hash cannot both receive the record.
	Consume(tokenHash string) (*RefreshToken, error)
	DeleteByUserID(userID int64) error
	DeleteExpired() error
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}
