// engine.go - Funding engine: composes compliance, nullifiers, campaigns and
// the transfer substrate.
package funding

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shadowfund/internal/campaign"
	"shadowfund/internal/compliance"
	"shadowfund/internal/metrics"
	"shadowfund/internal/nullifier"
	"shadowfund/internal/privacy"
	"shadowfund/internal/transfer"
)

// Clock supplies the time used for deadline checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithVerifier replaces the default shape-only proof check.
func WithVerifier(v privacy.Verifier) Option { return func(e *Engine) { e.verifier = v } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *metrics.Collector) Option { return func(e *Engine) { e.metrics = m } }

// WithNullifierStore starts the engine from an existing store, for example
// one restored with nullifier.LoadFromFile.
func WithNullifierStore(s *nullifier.Store) Option { return func(e *Engine) { e.nullifiers = s } }

// slot is the critical section for one campaign. closed is set by Cancel so
// callers that looked the slot up before removal fail cleanly.
type slot struct {
	mu     sync.Mutex
	c      *campaign.Campaign
	closed bool
}

// Engine runs the funding operations. Mutating operations on one campaign
// are serialized by that campaign's slot; the nullifier store serializes
// across campaigns.
type Engine struct {
	cfg        PlatformConfig
	registry   *compliance.Registry
	nullifiers *nullifier.Store
	transfers  transfer.Transferer
	verifier   privacy.Verifier
	clock      Clock
	log        zerolog.Logger
	metrics    *metrics.Collector

	mu        sync.RWMutex
	campaigns map[campaign.ID]*slot
}

// New creates an engine over the transfer substrate. The compliance registry
// is administered by cfg.Admin.
func New(cfg PlatformConfig, transfers transfer.Transferer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transfers == nil {
		return nil, fmt.Errorf("funding: nil transfer substrate")
	}
	e := &Engine{
		cfg:       cfg,
		registry:  compliance.NewRegistry(cfg.Admin),
		transfers: transfers,
		verifier:  privacy.ShapeVerifier{},
		clock:     SystemClock{},
		log:       zerolog.Nop(),
		campaigns: make(map[campaign.ID]*slot),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.nullifiers == nil {
		e.nullifiers = nullifier.NewStore()
	}
	return e, nil
}

func (e *Engine) Config() PlatformConfig         { return e.cfg }
func (e *Engine) Registry() *compliance.Registry { return e.registry }
func (e *Engine) Nullifiers() *nullifier.Store   { return e.nullifiers }
func (e *Engine) Metrics() *metrics.Collector    { return e.metrics }

// opLogger tags one operation with a fresh correlation id.
func (e *Engine) opLogger(op string, id campaign.ID) zerolog.Logger {
	return e.log.With().
		Str("op", op).
		Str("op_id", uuid.NewString()).
		Str("campaign", id.Hex()).
		Logger()
}

func logOutcome(log zerolog.Logger, err error) {
	if err != nil {
		log.Warn().Err(err).
			Str("code", Code(err)).
			Str("kind", KindOf(err).String()).
			Msg("rejected")
		return
	}
	log.Info().Msg("ok")
}

// lookup returns the slot for id without locking it.
func (e *Engine) lookup(id campaign.ID) (*slot, error) {
	e.mu.RLock()
	s, ok := e.campaigns[id]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return s, nil
}

// acquire returns the locked slot for id. The caller must unlock it.
func (e *Engine) acquire(id campaign.ID) (*slot, error) {
	s, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrCampaignNotFound
	}
	return s, nil
}

// Sanction flags addr. Only the platform admin may call it.
func (e *Engine) Sanction(caller, addr common.Address) (err error) {
	log := e.log.With().Str("op", "sanction").Str("op_id", uuid.NewString()).Str("address", addr.Hex()).Logger()
	defer func() { logOutcome(log, err) }()

	if err = e.registry.Sanction(caller, addr); err != nil {
		return err
	}
	e.metrics.SetGauge(metrics.MetricSanctionedGauge, float64(e.registry.Len()), nil)
	return nil
}

// Unsanction clears addr. Only the platform admin may call it.
func (e *Engine) Unsanction(caller, addr common.Address) (err error) {
	log := e.log.With().Str("op", "unsanction").Str("op_id", uuid.NewString()).Str("address", addr.Hex()).Logger()
	defer func() { logOutcome(log, err) }()

	if _, err = e.registry.Unsanction(caller, addr); err != nil {
		return err
	}
	e.metrics.SetGauge(metrics.MetricSanctionedGauge, float64(e.registry.Len()), nil)
	return nil
}

// InitializeCampaign creates the campaign identified by (owner, seq).
func (e *Engine) InitializeCampaign(owner common.Address, seq uint64, name, description string, target uint64, deadline time.Time) (id campaign.ID, err error) {
	id = campaign.DeriveID(owner, seq)
	log := e.opLogger("initialize", id)
	defer func() { logOutcome(log, err) }()

	c, err := campaign.New(owner, seq, name, description, target, deadline, e.clock.Now())
	if err != nil {
		return campaign.ID{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.campaigns[id]; ok {
		return campaign.ID{}, ErrCampaignExists
	}
	e.campaigns[id] = &slot{c: c}
	return id, nil
}

// AddRewardTier appends a tier and returns its index.
func (e *Engine) AddRewardTier(id campaign.ID, caller common.Address, spec campaign.TierSpec) (index int, err error) {
	log := e.opLogger("add_reward_tier", id)
	defer func() { logOutcome(log, err) }()

	s, err := e.acquire(id)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	return s.c.AddTier(caller, spec)
}

// Campaign returns a snapshot of the campaign.
func (e *Engine) Campaign(id campaign.ID) (*campaign.Campaign, error) {
	s, err := e.acquire(id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.c.Clone(), nil
}

// Receipt returns backer's receipt for the campaign.
func (e *Engine) Receipt(id campaign.ID, backer common.Address) (campaign.Receipt, error) {
	s, err := e.acquire(id)
	if err != nil {
		return campaign.Receipt{}, err
	}
	defer s.mu.Unlock()
	r, ok := s.c.Receipt(backer)
	if !ok {
		return campaign.Receipt{}, campaign.ErrReceiptNotFound
	}
	return r, nil
}

// Campaigns returns the ids of all open campaigns in byte order.
func (e *Engine) Campaigns() []campaign.ID {
	e.mu.RLock()
	ids := make([]campaign.ID, 0, len(e.campaigns))
	for id := range e.campaigns {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	sortIDs(ids)
	return ids
}

// CampaignsByOwner returns snapshots of owner's open campaigns, ordered by id.
func (e *Engine) CampaignsByOwner(owner common.Address) []*campaign.Campaign {
	var out []*campaign.Campaign
	e.eachCampaign(func(c *campaign.Campaign) {
		if c.Owner == owner {
			out = append(out, c.Clone())
		}
	})
	return out
}

// ReceiptsByBacker returns backer's receipts across all open campaigns,
// ordered by campaign id.
func (e *Engine) ReceiptsByBacker(backer common.Address) []campaign.Receipt {
	var out []campaign.Receipt
	e.eachCampaign(func(c *campaign.Campaign) {
		if r, ok := c.Receipt(backer); ok {
			out = append(out, r)
		}
	})
	return out
}

// eachCampaign calls fn for every open campaign in id order, holding that
// campaign's slot. The map lock is released before any slot is taken so the
// slot-then-map order used by Cancel is never inverted.
func (e *Engine) eachCampaign(fn func(c *campaign.Campaign)) {
	for _, id := range e.Campaigns() {
		s, err := e.acquire(id)
		if err != nil {
			continue // cancelled since the listing
		}
		fn(s.c)
		s.mu.Unlock()
	}
}

func sortIDs(ids []campaign.ID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

// transferErr marks a substrate failure while keeping the cause matchable.
func transferErr(err error) error {
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}
