// Package credits meters analysis usage against per-user balances.
package credits

import (
	"context"

	"github.com/cheyenne-cl/firegeo/internal/store"
)

// Ledger answers balance questions and charges for analyses.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Charge(ctx context.Context, userID string) (remaining int, cost int, err error)
	Refund(ctx context.Context, userID string) error
}

// balances is the subset of store.Store the ledger needs.
type balances interface {
	CreditBalance(ctx context.Context, userID string, initial int) (int, error)
	DeductCredits(ctx context.Context, userID string, amount, initial int) (int, error)
}

type ledger struct {
	store        balances
	initial      int
	analysisCost int
}

// NewLedger builds a store-backed ledger. New users start at initial;
// each analysis costs analysisCost.
func NewLedger(s balances, initial, analysisCost int) Ledger {
	return &ledger{store: s, initial: initial, analysisCost: analysisCost}
}

func (l *ledger) Balance(ctx context.Context, userID string) (int, error) {
	return l.store.CreditBalance(ctx, userID, l.initial)
}

func (l *ledger) Charge(ctx context.Context, userID string) (int, int, error) {
	remaining, err := l.store.DeductCredits(ctx, userID, l.analysisCost, l.initial)
	if err != nil {
		return 0, l.analysisCost, err
	}
	return remaining, l.analysisCost, nil
}

// Refund returns one analysis charge, used when a run fails before
// producing any result.
func (l *ledger) Refund(ctx context.Context, userID string) error {
	_, err := l.store.DeductCredits(ctx, userID, -l.analysisCost, l.initial)
	return err
}

var _ balances = (store.Store)(nil)
