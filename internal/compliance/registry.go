// registry.go - Admin-managed sanction registry.
//
// An address is sanctioned exactly when the registry holds an entry for it.
// There is no boolean flag to read: presence is the flag.

package compliance

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnauthorized      = errors.New("compliance: caller is not the registry admin")
	ErrDuplicateSanction = errors.New("compliance: address already sanctioned")
	ErrNotFound          = errors.New("compliance: address not in sanction registry")
)

// Entry records one sanctioned address.
type Entry struct {
	Address      common.Address `json:"address"`
	SanctionedBy common.Address `json:"sanctioned_by"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Registry is the set of sanctioned addresses. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	admin   common.Address
	entries map[common.Address]Entry
	now     func() time.Time
}

// NewRegistry creates an empty registry administered by admin.
func NewRegistry(admin common.Address) *Registry {
	return &Registry{
		admin:   admin,
		entries: make(map[common.Address]Entry),
		now:     time.Now,
	}
}

// Admin returns the identity allowed to change the registry.
func (r *Registry) Admin() common.Address {
	return r.admin
}

// Sanction adds addr to the registry. Re-sanctioning an address already
// present is rejected rather than merged so operator mistakes surface.
func (r *Registry) Sanction(caller, addr common.Address) error {
	if caller != r.admin {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[addr]; ok {
		return ErrDuplicateSanction
	}
	r.entries[addr] = Entry{
		Address:      addr,
		SanctionedBy: caller,
		CreatedAt:    r.now(),
	}
	return nil
}

// Unsanction removes the entry for addr and returns it to the caller.
func (r *Registry) Unsanction(caller, addr common.Address) (Entry, error) {
	if caller != r.admin {
		return Entry{}, ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[addr]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(r.entries, addr)
	return e, nil
}

// IsSanctioned reports whether an entry exists for addr.
func (r *Registry) IsSanctioned(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[addr]
	return ok
}

// Entry returns the stored entry for addr, if any.
func (r *Registry) Entry(addr common.Address) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[addr]
	return e, ok
}

// Len returns the number of sanctioned addresses.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
