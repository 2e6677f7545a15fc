package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/store"
)

func newTestService() (*AuthService, *store.MemStore) {
	st := store.NewMemStore()
	return NewAuthService(st, nil, zap.NewNop()), st
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		password    string
		expectError error
	}{
		{
			name:     "Success",
			username: "alice",
			password: "password123",
		},
		{
			name:        "EmptyUsername",
			username:    "",
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:        "EmptyPassword",
			username:    "bob",
			password:    "",
			expectError: ErrInvalidInput,
		},
		{
			name:        "DuplicateUsername",
			username:    "alice",
			password:    "newpass",
			expectError: store.ErrAccountExists,
		},
		{
			name:        "LongUsername",
			username:    strings.Repeat("a", 1000),
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:     "MultibyteUsernameAtLimit",
			username: strings.Repeat("é", 50),
			password: "password123",
		},
		{
			name:        "MultibyteUsernameOverLimit",
			username:    strings.Repeat("é", 51),
			password:    "password123",
			expectError: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newTestService()
			ctx := context.Background()

			// For duplicate test, ensure the user exists first
			if tt.name == "DuplicateUsername" {
				_, err := s.Register(ctx, "alice", "password123")
				require.NoError(t, err)
			}
			auditBefore, err := st.RecentAudit(ctx, 10)
			require.NoError(t, err)

			acct, err := s.Register(ctx, tt.username, tt.password)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				auditAfter, err := st.RecentAudit(ctx, 10)
				require.NoError(t, err)
				assert.Equal(t, auditBefore, auditAfter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, acct.Username)
			assert.True(t, acct.Balance.IsZero())

			audit, err := st.RecentAudit(ctx, 10)
			require.NoError(t, err)
			require.Len(t, audit, 1)
			assert.Equal(t, "User alice registered", audit[0].Message)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	s, st := newTestService()
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	tests := []struct {
		name        string
		username    string
		password    string
		expectError bool
	}{
		{
			name:     "Success",
			username: "alice",
			password: "password123",
		},
		{
			name:        "WrongPassword",
			username:    "alice",
			password:    "wrongpass",
			expectError: true,
		},
		{
			name:        "CaseMatters",
			username:    "alice",
			password:    "Password123",
			expectError: true,
		},
		{
			name:        "NonExistentUser",
			username:    "bob",
			password:    "password123",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := st.RecentAudit(ctx, 100)
			require.NoError(t, err)

			acct, err := s.Login(ctx, tt.username, tt.password)
			after, lerr := st.RecentAudit(ctx, 100)
			require.NoError(t, lerr)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Equal(t, before, after)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, acct.Username)
			require.Len(t, after, len(before)+1)
			assert.Equal(t, "User alice logged in", after[0].Message)
		})
	}
}
