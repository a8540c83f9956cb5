// transfer.go - Value-transfer substrate contract and an in-memory ledger.
//
// The funding engine never moves balances itself. It calls a Transferer,
// which must apply each call (and each batch) entirely or not at all.

package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientFunds = errors.New("transfer: insufficient funds")
	ErrBalanceOverflow   = errors.New("transfer: balance overflow")
)

// Movement is one leg of a batch.
type Movement struct {
	From   common.Address
	To     common.Address
	Amount uint64
}

// Transferer moves fungible balances between addresses.
type Transferer interface {
	Transfer(ctx context.Context, from, to common.Address, amount uint64) error
	// TransferBatch applies every movement or none of them.
	TransferBatch(ctx context.Context, moves []Movement) error
}

// Ledger is an in-memory Transferer. The zero value is not usable; call NewLedger.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]uint64)}
}

// Credit mints amount into addr. It is how tests and the simulator fund
// wallets.
func (l *Ledger) Credit(addr common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, carry := bits.Add64(l.balances[addr], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	l.balances[addr] = sum
	return nil
}

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount uint64) error {
	return l.TransferBatch(ctx, []Movement{{From: from, To: to, Amount: amount}})
}

func (l *Ledger) TransferBatch(ctx context.Context, moves []Movement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Apply to a scratch copy of the touched balances, then publish.
	next := make(map[common.Address]uint64, 2*len(moves))
	get := func(a common.Address) uint64 {
		if v, ok := next[a]; ok {
			return v
		}
		return l.balances[a]
	}
	for i, m := range moves {
		from := get(m.From)
		if from < m.Amount {
			return fmt.Errorf("leg %d: %s has %d, needs %d: %w", i, m.From.Hex(), from, m.Amount, ErrInsufficientFunds)
		}
		next[m.From] = from - m.Amount
		to, carry := bits.Add64(get(m.To), m.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("leg %d: %w", i, ErrBalanceOverflow)
		}
		next[m.To] = to
	}
	for a, v := range next {
		l.balances[a] = v
	}
	return nil
}
