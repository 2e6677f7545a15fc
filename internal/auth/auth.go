package auth

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/models"
	"github.com/xtrntr/papertrade/internal/store"
)

// matches accounts.username VARCHAR(50), which counts characters
const maxUsernameLen = 50

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Publisher receives audit entries once they are committed
type Publisher interface {
	Publish(entry models.AuditEntry)
}

// AuthService handles account registration and login
type AuthService struct {
	Store     store.Store
	Publisher Publisher
	Logger    *zap.Logger
}

// NewAuthService creates a new auth service. pub may be nil.
func NewAuthService(st store.Store, pub Publisher, logger *zap.Logger) *AuthService {
	return &AuthService{Store: st, Publisher: pub, Logger: logger}
}

// Register creates an account with a zero balance
func (s *AuthService) Register(ctx context.Context, username, password string) (models.Account, error) {
	// Validate input
	if username == "" || password == "" {
		return models.Account{}, fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return models.Account{}, fmt.Errorf("%w: username too long (max %d characters)", ErrInvalidInput, maxUsernameLen)
	}

	acct, entry, err := s.Store.CreateAccount(ctx, username, password, fmt.Sprintf("User %s registered", username))
	if err != nil {
		return models.Account{}, err
	}

	s.Logger.Info("account registered", zap.String("username", username), zap.Int64("account_id", acct.ID))
	s.publish(entry)
	return acct, nil
}

// Login checks the supplied password against the stored one
func (s *AuthService) Login(ctx context.Context, username, password string) (models.Account, error) {
	acct, err := s.Store.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return models.Account{}, ErrInvalidCredentials
		}
		return models.Account{}, err
	}
	if acct.Password != password {
		return models.Account{}, ErrInvalidCredentials
	}

	entry, err := s.Store.AppendAudit(ctx, fmt.Sprintf("User %s logged in", username))
	if err != nil {
		return models.Account{}, err
	}
	s.publish(entry)
	return acct, nil
}

func (s *AuthService) publish(entry models.AuditEntry) {
	if s.Publisher != nil {
		s.Publisher.Publish(entry)
	}
}
