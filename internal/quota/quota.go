package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nulzo/prism-copy/internal/kv"
	"github.com/nulzo/prism-copy/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultDailyLimit is the number of gated feature calls allowed per day.
	DefaultDailyLimit = 20

	storageKey = "quota:daily"
	dateLayout = "2006-01-02"
)

// Record is the persisted counter.
type Record struct {
	DailyUsed     int    `json:"daily_used"`
	LastResetDate string `json:"last_reset_date"`
}

// Info is the caller-facing quota view.
type Info struct {
	DailyUsed     int  `json:"daily_used"`
	DailyLimit    int  `json:"daily_limit"`
	CanUseFeature bool `json:"can_use_feature"`
}

// Gate is an advisory daily counter. It never rejects work itself; callers
// check CanUse and call Increment after a gated call succeeds. Errors are
// only returned when the backing store fails.
//
// Concurrent callers use Reserve, then Commit or Release. A reservation
// holds a slot in memory until the call finishes, so the persisted counter
// only ever grows.
type Gate struct {
	mu       sync.Mutex
	store    kv.Store
	limit    int
	pending  int
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Gate)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLocation sets the timezone whose calendar day bounds the counter.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.location = loc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGate(store kv.Store, dailyLimit int, opts ...Option) *Gate {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	g := &Gate{
		store:    store,
		limit:    dailyLimit,
		location: time.Local,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadLocation resolves a timezone name, treating "" and "Local" as time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func (g *Gate) today() string {
	return g.now().In(g.location).Format(dateLayout)
}

// CheckAndMaybeReset returns the current record, zeroing it first when the
// stored date is not today.
func (g *Gate) CheckAndMaybeReset(ctx context.Context) (Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkAndMaybeReset(ctx)
}

func (g *Gate) checkAndMaybeReset(ctx context.Context) (Record, error) {
	var rec Record
	if err := g.store.Get(ctx, storageKey, &rec); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return Record{}, err
	}

	today := g.today()
	if rec.LastResetDate != today {
		if rec.LastResetDate != "" {
			g.logger.Info("daily quota reset",
				zap.String("previous_date", rec.LastResetDate),
				zap.Int("previous_used", rec.DailyUsed),
			)
		}
		rec = Record{DailyUsed: 0, LastResetDate: today}
		if err := g.store.Set(ctx, storageKey, rec); err != nil {
			return Record{}, err
		}
	}

	metrics.QuotaUsed.Set(float64(rec.DailyUsed))
	return rec, nil
}

func (g *Gate) Info(ctx context.Context) (Info, error) {
	rec, err := g.CheckAndMaybeReset(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		DailyUsed:     rec.DailyUsed,
		DailyLimit:    g.limit,
		CanUseFeature: rec.DailyUsed < g.limit,
	}, nil
}

func (g *Gate) CanUse(ctx context.Context) (bool, error) {
	rec, err := g.CheckAndMaybeReset(ctx)
	if err != nil {
		return false, err
	}
	return rec.DailyUsed < g.limit, nil
}

// Increment adds one use. It does not consult the limit.
func (g *Gate) Increment(ctx context.Context) (Info, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.incrementLocked(ctx)
}

// Reserve claims a slot for an in-flight call. It reports false when used
// plus pending reservations already reach the limit.
func (g *Gate) Reserve(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.checkAndMaybeReset(ctx)
	if err != nil {
		return false, err
	}
	if rec.DailyUsed+g.pending >= g.limit {
		return false, nil
	}
	g.pending++
	return true, nil
}

// Commit turns a reservation into a persisted use.
func (g *Gate) Commit(ctx context.Context) (Info, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
	return g.incrementLocked(ctx)
}

// Release drops a reservation without counting it.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

func (g *Gate) releaseLocked() {
	if g.pending > 0 {
		g.pending--
	}
}

func (g *Gate) incrementLocked(ctx context.Context) (Info, error) {
	rec, err := g.checkAndMaybeReset(ctx)
	if err != nil {
		return Info{}, err
	}

	rec.DailyUsed++
	if err := g.store.Set(ctx, storageKey, rec); err != nil {
		return Info{}, err
	}
	metrics.QuotaUsed.Set(float64(rec.DailyUsed))

	return Info{
		DailyUsed:     rec.DailyUsed,
		DailyLimit:    g.limit,
		CanUseFeature: rec.DailyUsed < g.limit,
	}, nil
}

// Reset clears both the counter and the reset date.
func (g *Gate) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Delete(ctx, storageKey); err != nil {
		return err
	}
	metrics.QuotaUsed.Set(0)
	g.logger.Info("quota reset by operator")
	return nil
}
