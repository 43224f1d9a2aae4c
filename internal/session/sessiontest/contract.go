// Package sessiontest holds the behaviour every session.Store must share.
package sessiontest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/session"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.User(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no user")
	_, ok, err = store.Shift(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no shift")

	user := domain.SessionUser{
		ID:          "u-1",
		Username:    "ayu",
		Name:        "Ayu",
		Role:        domain.RoleCashier,
		OutletID:    "out-1",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveUser(ctx, user))
	gotUser, ok, err := store.User(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, user.Role, gotUser.Role)
	assert.True(t, user.ExpiresAt.Equal(gotUser.ExpiresAt))

	variance := decimal.NewFromInt(-25000)
	snap := domain.ShiftSnapshot{
		ID:          "shift-1",
		StaffID:     "u-1",
		Status:      domain.ShiftPendingApproval,
		StartTime:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		OpeningCash: decimal.NewFromInt(500000),
		CashSales:   decimal.NewFromInt(120000),
		Variance:    &variance,
		CashMovements: []domain.CashMovement{
			{Direction: domain.CashIn, Amount: decimal.NewFromInt(5000), At: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.SaveShift(ctx, snap))
	gotShift, ok, err := store.Shift(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ShiftPendingApproval, gotShift.Status)
	assert.True(t, gotShift.OpeningCash.Equal(snap.OpeningCash))
	require.NotNil(t, gotShift.Variance)
	assert.True(t, gotShift.Variance.Equal(variance))
	require.Len(t, gotShift.CashMovements, 1)

	snap.Status = domain.ShiftClosed
	require.NoError(t, store.SaveShift(ctx, snap))
	gotShift, _, err = store.Shift(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftClosed, gotShift.Status, "save overwrites")

	require.NoError(t, store.ClearShift(ctx))
	_, ok, err = store.Shift(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.User(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "clearing the shift keeps the user")

	require.NoError(t, store.SaveShift(ctx, snap))
	require.NoError(t, store.Clear(ctx))
	_, ok, _ = store.User(ctx)
	assert.False(t, ok)
	_, ok, _ = store.Shift(ctx)
	assert.False(t, ok)
}
