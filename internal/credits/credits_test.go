package credits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyenne-cl/firegeo/internal/store"
)

type memBalances struct {
	balances map[string]int
}

func newMemBalances() *memBalances {
	return &memBalances{balances: map[string]int{}}
}

func (m *memBalances) CreditBalance(_ context.Context, userID string, initial int) (int, error) {
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = initial
	}
	return m.balances[userID], nil
}

func (m *memBalances) DeductCredits(_ context.Context, userID string, amount, initial int) (int, error) {
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = initial
	}
	if m.balances[userID] < amount {
		return 0, store.ErrInsufficientCredits
	}
	m.balances[userID] -= amount
	return m.balances[userID], nil
}

func TestLedger_ChargeAndBalance(t *testing.T) {
	l := NewLedger(newMemBalances(), 100, 10)
	ctx := context.Background()

	balance, err := l.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	remaining, cost, err := l.Charge(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 90, remaining)
	assert.Equal(t, 10, cost)
}

func TestLedger_InsufficientCredits(t *testing.T) {
	l := NewLedger(newMemBalances(), 5, 10)
	ctx := context.Background()

	_, cost, err := l.Charge(ctx, "user-1")
	assert.ErrorIs(t, err, store.ErrInsufficientCredits)
	assert.Equal(t, 10, cost)
}

func TestLedger_Refund(t *testing.T) {
	m := newMemBalances()
	l := NewLedger(m, 100, 10)
	ctx := context.Background()

	_, _, err := l.Charge(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, l.Refund(ctx, "user-1"))

	balance, err := l.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}
