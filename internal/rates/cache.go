package rates

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// Loader reads the reference tables from the store.
type Loader interface {
	LoadRates(ctx context.Context) (domain.RateSnapshot, error)
}

// SharedStore is an optional second level shared between processes.
type SharedStore interface {
	GetRates(ctx context.Context) (*domain.RateSnapshot, bool, error)
	SetRates(ctx context.Context, snapshot domain.RateSnapshot) error
	InvalidateRates(ctx context.Context) error
}

// Repository hands out the current rate snapshot.
type Repository interface {
	Load(ctx context.Context) (domain.RateSnapshot, error)
	Invalidate(ctx context.Context) error
}

// Cache loads the reference tables once and keeps them for the lifetime of
// the process, until Invalidate is called. A failed load is not cached.
type Cache struct {
	loader Loader
	shared SharedStore

	mu       sync.Mutex
	snapshot *domain.RateSnapshot
}

func NewCache(loader Loader, shared SharedStore) *Cache {
	return &Cache{loader: loader, shared: shared}
}

func (c *Cache) Load(ctx context.Context) (domain.RateSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil {
		return *c.snapshot, nil
	}

	if c.shared != nil {
		if snapshot, ok, err := c.shared.GetRates(ctx); err == nil && ok {
			c.snapshot = snapshot
			return *snapshot, nil
		} else if err != nil {
			log.Warn().Err(err).Msg("rates: shared cache get failed")
		}
	}

	snapshot, err := c.loader.LoadRates(ctx)
	if err != nil {
		return domain.RateSnapshot{}, err
	}
	if snapshot.LoadedAt.IsZero() {
		snapshot.LoadedAt = time.Now()
	}

	if c.shared != nil {
		if err := c.shared.SetRates(ctx, snapshot); err != nil {
			log.Warn().Err(err).Msg("rates: shared cache set failed")
		}
	}

	log.Info().
		Int("vat", len(snapshot.Rates.Vat)).
		Int("om", len(snapshot.Rates.Om)).
		Int("octroi", len(snapshot.Rates.Octroi)).
		Int("extra", len(snapshot.Rates.Extra)).
		Int("warnings", len(snapshot.Warnings)).
		Msg("rates: reference tables loaded")

	c.snapshot = &snapshot
	return snapshot, nil
}

// Invalidate drops the in-process snapshot and the shared copy.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()

	if c.shared != nil {
		return c.shared.InvalidateRates(ctx)
	}
	return nil
}

// Static is a Repository over a fixed snapshot.
type Static struct {
	Snapshot domain.RateSnapshot
}

func (s Static) Load(context.Context) (domain.RateSnapshot, error) {
	return s.Snapshot, nil
}

func (s Static) Invalidate(context.Context) error {
	return nil
}
