package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelationMissing(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg undefined table", err: &pgconn.PgError{Code: "42P01", Message: `relation "user_roles" does not exist`}, want: true},
		{name: "pg permission denied", err: &pgconn.PgError{Code: "42501", Message: "permission denied for table user_roles"}, want: false},
		{name: "wrapped pg undefined table", err: fmt.Errorf("list roles: %w", &pgconn.PgError{Code: "42P01"}), want: true},
		{name: "postgrest code", err: errors.New("PGRST116: JSON object requested, multiple (or no) rows returned"), want: true},
		{name: "sqlite", err: errors.New("no such table: user_roles"), want: true},
		{name: "wrapped sqlite", err: fmt.Errorf("list user roles: %w", errors.New("no such table: user_roles")), want: true},
		{name: "pq undefined table", err: fmt.Errorf("list user roles: %w", &pq.Error{Code: "42P01"}), want: true},
		{name: "pq permission denied", err: fmt.Errorf("list user roles: %w", &pq.Error{Code: "42501", Message: "permission denied for relation user_roles"}), want: false},
		{name: "legacy permission wording", err: errors.New("permission denied for relation user_roles"), want: false},
		{name: "bare relation message", err: errors.New(`relation "public.user_roles" does not exist`), want: false},
		{name: "user not found", err: errors.New("user not found"), want: false},
		{name: "generic permission", err: errors.New("permission denied"), want: false},
		{name: "jwt expired", err: errors.New("JWT expired"), want: false},
		{name: "not configured", err: ErrNotConfigured, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRelationMissing(tc.err))
		})
	}
}

func TestIsNotConfigured(t *testing.T) {
	assert.True(t, IsNotConfigured(ErrNotConfigured))
	assert.True(t, IsNotConfigured(fmt.Errorf("list medicines: %w", ErrNotConfigured)))
	assert.False(t, IsNotConfigured(errors.New("boom")))
	assert.False(t, IsNotConfigured(nil))
}

func TestUnconfiguredIsDistinctFromEmpty(t *testing.T) {
	ctx := context.Background()
	var b Unconfigured

	session, err := b.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	meds, err := b.ListMedicines(ctx, MedicineFilter{})
	assert.Nil(t, meds)
	assert.True(t, IsNotConfigured(err))

	_, err = b.ListUserRoles(ctx, uuid.New())
	assert.True(t, IsNotConfigured(err))
	assert.False(t, IsRelationMissing(err))

	_, err = b.SignInWithPassword(ctx, "a@b.c", "secret")
	assert.True(t, IsNotConfigured(err))

	unsubscribe := b.OnSessionChange(func(SessionChange) {})
	unsubscribe()
}
