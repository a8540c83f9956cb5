// store.go - Append-only store of spent privacy nullifiers.
//
// A nullifier is an opaque 32-byte hash. Once committed it is never removed
// and inserting it again fails. A hash reserved by an in-flight donation
// holds later claimants until that donation commits or aborts, so of any set
// of racing claims exactly one lands. The store is persisted as a single
// JSON file.

package nullifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// HashLength is the required nullifier width in bytes.
const HashLength = common.HashLength

var (
	ErrNullifierReused = errors.New("nullifier: hash already spent")
	ErrInvalidLength   = errors.New("nullifier: hash must be 32 bytes")
	ErrReservationDone = errors.New("nullifier: reservation already settled")
)

// Entry is a committed nullifier.
type Entry struct {
	Hash     common.Hash `json:"hash"`
	Campaign common.Hash `json:"campaign"`
	SpentAt  time.Time   `json:"spent_at"`
}

// Store holds committed nullifiers and pending reservations. It is safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	spent   map[common.Hash]Entry
	pending map[common.Hash]chan struct{}
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		spent:   make(map[common.Hash]Entry),
		pending: make(map[common.Hash]chan struct{}),
		now:     time.Now,
	}
}

// ParseHash checks the raw length and converts it to a hash.
func ParseHash(raw []byte) (common.Hash, error) {
	if len(raw) != HashLength {
		return common.Hash{}, ErrInvalidLength
	}
	return common.BytesToHash(raw), nil
}

// Spend records hash as spent for campaign in a single step.
func (s *Store) Spend(hash, campaign common.Hash) error {
	r, err := s.Reserve(context.Background(), hash, campaign)
	if err != nil {
		return err
	}
	return r.Commit()
}

// Reserve claims hash for campaign without committing it. If another
// reservation of hash is open, Reserve waits for it to settle: a commit
// fails this call with ErrNullifierReused, an abort lets it retry. The
// caller must Commit or Abort the returned reservation.
func (s *Store) Reserve(ctx context.Context, hash, campaign common.Hash) (*Reservation, error) {
	for {
		s.mu.Lock()
		if _, ok := s.spent[hash]; ok {
			s.mu.Unlock()
			return nil, ErrNullifierReused
		}
		settled, busy := s.pending[hash]
		if !busy {
			s.pending[hash] = make(chan struct{})
			s.mu.Unlock()
			return &Reservation{store: s, hash: hash, campaign: campaign}, nil
		}
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Contains reports whether hash has been committed.
func (s *Store) Contains(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.spent[hash]
	return ok
}

// Get returns the committed entry for hash.
func (s *Store) Get(hash common.Hash) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.spent[hash]
	return e, ok
}

// Len returns the number of committed nullifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spent)
}

// Reservation is a pending claim on a nullifier.
type Reservation struct {
	store    *Store
	hash     common.Hash
	campaign common.Hash
	done     bool
}

// Hash returns the reserved nullifier.
func (r *Reservation) Hash() common.Hash {
	return r.hash
}

// Commit makes the reservation permanent.
func (r *Reservation) Commit() error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.done {
		return ErrReservationDone
	}
	r.done = true
	s.spent[r.hash] = Entry{Hash: r.hash, Campaign: r.campaign, SpentAt: s.now()}
	s.release(r.hash)
	return nil
}

// Abort releases the reservation. Aborting a settled reservation is a no-op.
func (r *Reservation) Abort() {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	s.release(r.hash)
}

// release wakes claimants waiting on hash. s.mu must be held.
func (s *Store) release(hash common.Hash) {
	if ch, ok := s.pending[hash]; ok {
		close(ch)
		delete(s.pending, hash)
	}
}

type snapshot struct {
	Nullifiers []Entry `json:"nullifiers"`
}

// SaveToFile writes the committed nullifiers to path, overwriting it.
// Pending reservations are not persisted.
func (s *Store) SaveToFile(path string) error {
	s.mu.Lock()
	snap := snapshot{Nullifiers: make([]Entry, 0, len(s.spent))}
	for _, e := range s.spent {
		snap.Nullifiers = append(snap.Nullifiers, e)
	}
	s.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// LoadFromFile reads a store written by SaveToFile.
func LoadFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode nullifier snapshot: %w", err)
	}
	s := NewStore()
	for _, e := range snap.Nullifiers {
		if _, dup := s.spent[e.Hash]; dup {
			return nil, fmt.Errorf("snapshot entry %s: %w", e.Hash.Hex(), ErrNullifierReused)
		}
		s.spent[e.Hash] = e
	}
	return s, nil
}
