package nullifier

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var campaignA = crypto.Keccak256Hash([]byte("campaign-a"))

func TestSpendRejectsReuse(t *testing.T) {
	s := NewStore()
	h := crypto.Keccak256Hash([]byte("note-1"))

	require.NoError(t, s.Spend(h, campaignA))
	assert.True(t, s.Contains(h))
	assert.ErrorIs(t, s.Spend(h, campaignA), ErrNullifierReused)

	// The namespace is global: another campaign cannot spend it either.
	other := crypto.Keccak256Hash([]byte("campaign-b"))
	assert.ErrorIs(t, s.Spend(h, other), ErrNullifierReused)

	e, ok := s.Get(h)
	require.True(t, ok)
	assert.Equal(t, campaignA, e.Campaign)
	assert.Equal(t, 1, s.Len())
}

func TestReservationAbortFreesHash(t *testing.T) {
	s := NewStore()
	h := crypto.Keccak256Hash([]byte("note-2"))

	r, err := s.Reserve(context.Background(), h, campaignA)
	require.NoError(t, err)
	assert.Equal(t, h, r.Hash())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Reserve(ctx, h, campaignA)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "pending reservation holds others")
	assert.False(t, s.Contains(h))

	r.Abort()
	assert.Equal(t, 0, s.Len())
	require.NoError(t, s.Spend(h, campaignA))
}

func TestReserveWaitsForPending(t *testing.T) {
	other := crypto.Keccak256Hash([]byte("campaign-b"))

	tests := []struct {
		name   string
		settle func(*testing.T, *Reservation)
		want   error
	}{
		{"abort hands the hash over", func(_ *testing.T, r *Reservation) { r.Abort() }, nil},
		{"commit rejects the waiter", func(t *testing.T, r *Reservation) { require.NoError(t, r.Commit()) }, ErrNullifierReused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			h := crypto.Keccak256Hash([]byte("contended"))
			first, err := s.Reserve(context.Background(), h, campaignA)
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				r, err := s.Reserve(context.Background(), h, other)
				if err == nil {
					err = r.Commit()
				}
				done <- err
			}()

			select {
			case err := <-done:
				t.Fatalf("second reservation returned before the first settled: %v", err)
			case <-time.After(20 * time.Millisecond):
			}

			tt.settle(t, first)
			err = <-done
			if tt.want == nil {
				require.NoError(t, err)
				e, ok := s.Get(h)
				require.True(t, ok)
				assert.Equal(t, other, e.Campaign)
			} else {
				assert.ErrorIs(t, err, tt.want)
				e, _ := s.Get(h)
				assert.Equal(t, campaignA, e.Campaign)
			}
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestReservationSettlesOnce(t *testing.T) {
	s := NewStore()
	h := crypto.Keccak256Hash([]byte("note-3"))
	r, err := s.Reserve(context.Background(), h, campaignA)
	require.NoError(t, err)
	require.NoError(t, r.Commit())
	assert.ErrorIs(t, r.Commit(), ErrReservationDone)

	r.Abort()
	assert.True(t, s.Contains(h), "abort after commit must not remove the entry")
}

func TestParseHash(t *testing.T) {
	_, err := ParseHash(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = ParseHash(make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidLength)

	raw := crypto.Keccak256([]byte("x"))
	h, err := ParseHash(raw)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(raw), h)
}

func TestConcurrentSpendExactlyOneWins(t *testing.T) {
	s := NewStore()
	h := crypto.Keccak256Hash([]byte("raced"))

	const n = 32
	var (
		wg      sync.WaitGroup
		results = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Spend(h, campaignA)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrNullifierReused)
	}
	assert.Equal(t, 1, wins)
}

func TestSaveAndLoad(t *testing.T) {
	s := NewStore()
	h1 := crypto.Keccak256Hash([]byte("a"))
	h2 := crypto.Keccak256Hash([]byte("b"))
	require.NoError(t, s.Spend(h1, campaignA))
	require.NoError(t, s.Spend(h2, campaignA))

	pending := crypto.Keccak256Hash([]byte("pending"))
	_, err := s.Reserve(context.Background(), pending, campaignA)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nullifiers.json")
	require.NoError(t, s.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.True(t, loaded.Contains(h1))
	assert.True(t, loaded.Contains(h2))
	assert.False(t, loaded.Contains(pending))
	assert.ErrorIs(t, loaded.Spend(h1, campaignA), ErrNullifierReused)
}
