package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../sql/001_init.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return New(db, []byte("test-secret"), time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "hunter2x")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Len(t, u.ID, 22)
	require.NotEqual(t, "hunter2x", u.PasswordHash)

	got, err := svc.Login(ctx, "alice", "hunter2x")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "alice", "wrongpw")
	require.ErrorIs(t, err, ErrWrongCredentials)

	_, err = svc.Login(ctx, "nobody", "hunter2x")
	require.ErrorIs(t, err, ErrUserNotRegistered)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string][2]string{
		"short username":  {"ab", "hunter2x"},
		"long username":   {"abcdefghijklmnopqrstuvwxy", "hunter2x"},
		"bad characters":  {"al ice", "hunter2x"},
		"short password":  {"alice", "12345"},
		"empty password":  {"alice", ""},
		"blank username":  {"   ", "hunter2x"},
	}
	for name, c := range cases {
		_, err := svc.Register(ctx, c[0], c[1])
		require.Error(t, err, name)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "hunter2x")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "another1")
	require.ErrorIs(t, err, ErrUsernameTaken)

	// Collision check is case-insensitive.
	_, err = svc.Register(ctx, "ALICE", "another1")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "hunter2x")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "hunter2x")
	require.NoError(t, err)

	// Wrong old password.
	_, err = svc.UpdateCredentials(ctx, "alice", "wrongpw", "alice2", "")
	require.ErrorIs(t, err, ErrWrongCredentials)

	// Nothing to change.
	_, err = svc.UpdateCredentials(ctx, "alice", "hunter2x", "", "")
	require.Error(t, err)

	// New name collides with an existing account.
	_, err = svc.UpdateCredentials(ctx, "alice", "hunter2x", "bob", "")
	require.ErrorIs(t, err, ErrUsernameTaken)

	// Rename only.
	u, err := svc.UpdateCredentials(ctx, "alice", "hunter2x", "alice2", "")
	require.NoError(t, err)
	require.Equal(t, "alice2", u.Username)
	_, err = svc.Login(ctx, "alice2", "hunter2x")
	require.NoError(t, err)

	// Password only; the old one stops working.
	_, err = svc.UpdateCredentials(ctx, "alice2", "hunter2x", "", "newpass1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice2", "hunter2x")
	require.ErrorIs(t, err, ErrWrongCredentials)
	_, err = svc.Login(ctx, "alice2", "newpass1")
	require.NoError(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "hunter2x")
	require.NoError(t, err)

	token, exp, err := svc.SignToken(u)
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	got, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice", got.Username)

	_, err = svc.VerifyToken(ctx, "not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret is rejected.
	other := New(nil, []byte("other-secret"), time.Hour)
	forged, _, err := other.SignToken(u)
	require.NoError(t, err)
	_, err = svc.VerifyToken(ctx, forged)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenDeletedAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "hunter2x")
	require.NoError(t, err)
	token, _, err := svc.SignToken(u)
	require.NoError(t, err)

	_, err = svc.db.Exec(`DELETE FROM users WHERE id=?`, u.ID)
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
