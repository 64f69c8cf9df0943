package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/core"
	"smartexpense/internal/kv/memory"
	"smartexpense/internal/records"
)

func newDirectory(t *testing.T) (*Directory, *records.Store) {
	t.Helper()
	rec := records.New(memory.New(), nil)
	return NewDirectory(rec, nil), rec
}

func TestRegisterRejectsCaseInsensitiveDuplicate(t *testing.T) {
	ctx := context.Background()
	d, rec := newDirectory(t)

	_, err := d.Register(ctx, core.Account{Name: "Alice", Username: "Alice", Password: "x"})
	require.NoError(t, err)
	_, err = d.Register(ctx, core.Account{Name: "Other", Username: " alice ", Password: "y"})
	assert.ErrorIs(t, err, core.ErrUsernameTaken)

	accounts, err := rec.LoadAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestRegisterValidates(t *testing.T) {
	ctx := context.Background()
	d, _ := newDirectory(t)
	_, err := d.Register(ctx, core.Account{Username: "  ", Password: "x"})
	assert.ErrorIs(t, err, core.ErrEmptyUsername)
	_, err = d.Register(ctx, core.Account{Username: "bob"})
	assert.ErrorIs(t, err, core.ErrEmptyPassword)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	d, _ := newDirectory(t)
	_, err := d.Register(ctx, core.Account{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	a, err := d.Verify(ctx, "ALICE", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)

	_, err = d.Verify(ctx, "alice", "SECRET")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	_, err = d.Verify(ctx, "mallory", "secret")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	d, _ := newDirectory(t)
	_, err := d.Register(ctx, core.Account{Username: "alice", Password: "old"})
	require.NoError(t, err)

	require.NoError(t, d.ResetPassword(ctx, "Alice", "new"))
	_, err = d.Verify(ctx, "alice", "new")
	assert.NoError(t, err)
	_, err = d.Verify(ctx, "alice", "old")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	assert.ErrorIs(t, d.ResetPassword(ctx, "ghost", "pw"), core.ErrAccountNotFound)
	assert.ErrorIs(t, d.ResetPassword(ctx, "alice", ""), core.ErrEmptyPassword)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	d, _ := newDirectory(t)
	_, err := d.Register(ctx, core.Account{Name: "Alice", Username: "alice", Email: "a@x", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, d.UpdateProfile(ctx, core.Account{Name: "Alice B", Username: "ALICE", Email: "b@x", AvatarURL: "data:image/png;base64,AA=="}))
	a, err := d.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", a.Name)
	assert.Equal(t, "pw", a.Password, "password kept when omitted")
	assert.Equal(t, "data:image/png;base64,AA==", a.AvatarURL)

	// upsert appends unknown accounts
	require.NoError(t, d.UpdateProfile(ctx, core.Account{Username: "carol", Password: "c"}))
	ok, err := d.Exists(ctx, "Carol")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Exists(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, ok)
}
