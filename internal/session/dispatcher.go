// Package session keeps the authoritative in-memory copy of each
// active user's row and serializes their turns. Every cached row
// carries the updated_at marker it was read with; before reuse the
// marker is probed against the store and the row is kept, refreshed,
// or evicted accordingly. A cached marker newer than the store means
// a write bypassed the turn pipeline and is treated as fatal.
package session

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/logger"
	"github.com/olegbarsky/techstock-bot/pkg/metrics"
	"github.com/olegbarsky/techstock-bot/pkg/redis"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Sentinel causes, mapped onto drop reasons by the engine.
var (
	ErrRegistrationClosed = stderrors.New("registration closed")
	ErrUserDisabled       = stderrors.New("user disabled")
	ErrUserDeleted        = stderrors.New("user deleted")
)

// UserStore is the narrow persistence surface the dispatcher needs.
type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	MarkerByTelegramID(ctx context.Context, telegramID int64) (time.Time, error)
	RegistrationOpen(ctx context.Context) (bool, error)
}

// Dispatcher owns the session cache, the per-user turn locks, and the
// callback dedup filter. Cache map and lock map sit behind separate
// mutexes; neither mutex is ever held across store I/O.
type Dispatcher struct {
	store UserStore

	cacheMu sync.Mutex
	cache   map[int64]*models.User

	locksMu sync.Mutex
	locks   map[int64]*userLock

	dedup    redis.DedupStore
	dedupTTL time.Duration

	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
}

// userLock is a turn mutex with enough bookkeeping to remove it from
// the map safely: a dead entry is only deleted once the last holder or
// waiter has released it, so a user's turns never run on two mutexes.
type userLock struct {
	mu   sync.Mutex
	refs int
	dead bool
}

func NewDispatcher(store UserStore, logg *logger.Logger, m *metrics.DispatchMetrics) *Dispatcher {
	return &Dispatcher{
		store:   store,
		cache:   make(map[int64]*models.User),
		locks:   make(map[int64]*userLock),
		logg:    logg,
		metrics: m,
	}
}

// WithDedup enables duplicate callback filtering through the provided
// store; without it every callback is treated as first delivery.
func (d *Dispatcher) WithDedup(store redis.DedupStore, ttl time.Duration) *Dispatcher {
	d.dedup = store
	d.dedupTTL = ttl
	return d
}

// Acquire blocks until the user's turn lock is held and returns its
// release func. The caller holds the lock for the whole turn, so
// concurrent updates from the same user execute strictly one after
// another.
func (d *Dispatcher) Acquire(telegramID int64) func() {
	d.locksMu.Lock()
	lock, ok := d.locks[telegramID]
	if !ok {
		lock = &userLock{}
		d.locks[telegramID] = lock
	}
	lock.refs++
	d.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		d.locksMu.Lock()
		defer d.locksMu.Unlock()
		lock.refs--
		if lock.refs == 0 && lock.dead && d.locks[telegramID] == lock {
			delete(d.locks, telegramID)
		}
	}
}

// Resolve returns the current user row for the sender, applying the
// freshness protocol against the cache. Unknown senders are admitted
// as unsaved guest rows while any manager keeps registration open;
// persisting the guest is the turn's job, so a rolled-back first turn
// leaves no row behind. The caller must hold the user's turn lock.
func (d *Dispatcher) Resolve(ctx context.Context, sender telegram.Sender) (*models.User, error) {
	cached := d.peek(sender.ID)
	if cached == nil {
		d.metrics.IncCache(metrics.CacheMiss)
		user, err := d.store.FindByTelegramID(ctx, sender.ID)
		if err != nil {
			if isNotFound(err) {
				return d.admitGuest(ctx, sender)
			}
			return nil, err
		}
		d.put(user)
		return d.accept(user)
	}

	// A cached row is only reused after its marker is probed against
	// the store; the probe is a narrow projection, not a row fetch.
	marker, err := d.store.MarkerByTelegramID(ctx, sender.ID)
	switch {
	case err == nil:
	case isNotFound(err):
		d.evict(sender.ID)
		d.dropLock(sender.ID)
		d.metrics.IncCache(metrics.CacheEvicted)
		return nil, errors.Wrap(errors.CodeNotFound, ErrUserDeleted, "cached user no longer in store")
	default:
		return nil, err
	}

	switch {
	case marker.Equal(cached.UpdatedAt):
		d.metrics.IncCache(metrics.CacheHit)
		return d.accept(cached)
	case marker.After(cached.UpdatedAt):
		d.metrics.IncCache(metrics.CacheStale)
	default:
		// The cached row is ahead of the store: some write skipped
		// the marker discipline. Nothing downstream can be trusted.
		d.evict(sender.ID)
		return nil, errors.New(errors.CodeCacheDivergence, "cached user row is newer than the store")
	}

	user, err := d.store.FindByTelegramID(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	d.put(user)
	return d.accept(user)
}

// Put replaces the cached row after a committed turn so the next
// resolve compares against the marker the commit produced.
func (d *Dispatcher) Put(user *models.User) {
	if user == nil {
		return
	}
	d.put(user)
}

// Invalidate drops the cached row; the next resolve refetches.
func (d *Dispatcher) Invalidate(telegramID int64) {
	d.evict(telegramID)
}

// FirstDelivery reports whether the callback id has not been seen
// within the dedup window. Errors fail open: a broken dedup store
// must not stall conversations.
func (d *Dispatcher) FirstDelivery(ctx context.Context, callbackID string) bool {
	if d.dedup == nil || callbackID == "" {
		return true
	}
	fresh, err := d.dedup.SetNX(ctx, d.dedup.CallbackKey(callbackID), 1, d.dedupTTL)
	if err != nil {
		if d.logg != nil {
			d.logg.Warn(ctx, "callback dedup store unavailable, admitting callback")
		}
		return true
	}
	return fresh
}

// accept applies the acceptance filter to a fresh or cached row.
func (d *Dispatcher) accept(user *models.User) (*models.User, error) {
	if user.Disabled {
		return nil, errors.Wrap(errors.CodeStateConflict, ErrUserDisabled, "user is disabled")
	}
	return user, nil
}

// admitGuest synthesizes an unsaved row for a sender the store has
// never seen, provided a manager currently keeps registration open.
// The row is not cached either: it enters the cache only after the
// turn that created it commits.
func (d *Dispatcher) admitGuest(ctx context.Context, sender telegram.Sender) (*models.User, error) {
	open, err := d.store.RegistrationOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, errors.Wrap(errors.CodeNotFound, ErrRegistrationClosed, "unknown user while registration is closed")
	}

	user := &models.User{
		TelegramID: sender.ID,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
	}
	if sender.Username != "" {
		username := sender.Username
		user.Username = &username
	}
	if d.logg != nil {
		d.logg.Info(d.logg.WithUserID(ctx, sender.ID), "guest admitted")
	}
	return user, nil
}

func (d *Dispatcher) peek(telegramID int64) *models.User {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return d.cache[telegramID]
}

func (d *Dispatcher) put(user *models.User) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache[user.TelegramID] = user
}

func (d *Dispatcher) evict(telegramID int64) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	delete(d.cache, telegramID)
}

// dropLock marks the deleted user's lock entry for removal. The entry
// stays in the map while any turn still holds or awaits it; the last
// release deletes it, so a racing Acquire can never mint a second
// mutex for the same user.
func (d *Dispatcher) dropLock(telegramID int64) {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	if lock, ok := d.locks[telegramID]; ok {
		lock.dead = true
	}
}

func isNotFound(err error) bool {
	typed := errors.As(err)
	return typed != nil && typed.Code() == errors.CodeNotFound
}
