package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidUsername indicates an empty or oversized username.
var ErrInvalidUsername = errors.New("users: invalid username")

// ServiceConfig describes the dependencies required for account lookup.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service resolves usernames to vault accounts.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	known sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// ValidateUsername trims and checks a username.
func ValidateUsername(raw string) (string, error) {
	username := normalize(raw)
	if username == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUsername, maxUsernameLength)
	}
	return username, nil
}

// Login returns the account for username, creating it on first use, and
// reports whether it was newly created.
func (s *Service) Login(ctx context.Context, raw string) (Account, bool, error) {
	username, err := ValidateUsername(raw)
	if err != nil {
		return Account{}, false, err
	}

	var account Account
	err = s.db.WithContext(ctx).
		Where("username = ?", username).
		First(&account).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = Account{
			Username:   username,
			LastSeenAt: s.now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return Account{}, false, err
		}
		s.known.Store(username, struct{}{})
		return account, true, nil
	}
	if err != nil {
		return Account{}, false, err
	}

	account.LastSeenAt = s.now().UTC()
	_ = s.db.WithContext(ctx).Model(&Account{}).
		Where("username = ?", username).
		Update("last_seen_at", account.LastSeenAt).
		Error
	s.known.Store(username, struct{}{})
	return account, false, nil
}

// Exists reports whether username has an account. Positive answers are cached.
func (s *Service) Exists(ctx context.Context, raw string) (bool, error) {
	username, err := ValidateUsername(raw)
	if err != nil {
		return false, err
	}
	if _, ok := s.known.Load(username); ok {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	s.known.Store(username, struct{}{})
	return true, nil
}
