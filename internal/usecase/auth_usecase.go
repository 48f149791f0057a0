package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shopfloor/backend/internal/auth"
	"github.com/shopfloor/backend/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthUsecase mediates between credential verification, refresh-token
// persistence, and access-token issuance. All collaborators are passed in at
// construction.
type AuthUsecase struct {
	userRepo   domain.UserRepository
	tokenRepo  domain.RefreshTokenRepository
	hasher     auth.PasswordHasher
	signer     auth.TokenSigner
	refreshTTL time.Duration
}

func NewAuthUsecase(userRepo domain.UserRepository, tokenRepo domain.RefreshTokenRepository, hasher auth.PasswordHasher, signer auth.TokenSigner, refreshTTL time.Duration) *AuthUsecase {
	return &AuthUsecase{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		hasher:     hasher,
		signer:     signer,
		refreshTTL: refreshTTL,
	}
}

// ValidateCredentials looks up the account by email and verifies the
// password. A missing account and a wrong password are indistinguishable to
// the caller; a dummy comparison keeps the miss path from being cheaper than
// the hit path.
func (u *AuthUsecase) ValidateCredentials(email, password string) (*domain.User, error) {
	user, err := u.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		u.hasher.Compare(auth.DummyHash, password)
		return nil, ErrInvalidCredentials
	}

	if !u.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login issues a fresh token pair for an already-validated user. Any refresh
// token the user still holds is deleted first: a user has at most one live
// refresh token at a time.
func (u *AuthUsecase) Login(user *domain.User) (*domain.TokenPair, error) {
	existing, err := u.tokenRepo.GetByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := u.tokenRepo.DeleteByUserID(user.ID); err != nil {
			return nil, err
		}
	}

	return u.issueTokenPair(user.ID)
}

// Refresh rotates a refresh token. The presented value is consumed
// atomically, so it is unusable after this call regardless of outcome. An
// expired record fails with ErrSessionExpired and stays deleted; a live one
// yields a new pair for the same user.
func (u *AuthUsecase) Refresh(refreshToken string) (*domain.TokenPair, error) {
	record, err := u.tokenRepo.Consume(hashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidToken
	}

	if record.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	return u.issueTokenPair(record.UserID)
}

// Logout deletes the caller's refresh token. Unknown values are a no-op.
func (u *AuthUsecase) Logout(refreshToken string) error {
	_, err := u.tokenRepo.Consume(hashToken(refreshToken))
	return err
}

func (u *AuthUsecase) VerifyAccessToken(token string) (*auth.Claims, error) {
	return u.signer.Verify(token)
}

func (u *AuthUsecase) issueTokenPair(userID int64) (*domain.TokenPair, error) {
	accessToken, expiresAt, err := u.signer.Sign(userID)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.New().String()
	record := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(u.refreshTTL),
	}
	if err := u.tokenRepo.Create(record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
