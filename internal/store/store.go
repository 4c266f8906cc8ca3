// Package store is the shared in-memory cache of reservations and
// clients for one authenticated console session.  A single Store is
// created per session and passed to every view; views read snapshots and
// route every change back through the Store's mutators.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/reserveease-console/internal/metrics"
	"github.com/iliyamo/reserveease-console/internal/model"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/iliyamo/reserveease-console/internal/store")

var (
	// ErrLoading is returned by readers until the first Load completes.
	ErrLoading = errors.New("data is still loading")
	// ErrLoadFailed is returned by readers after Load failed.
	ErrLoadFailed = errors.New("failed to load data")
)

// API lists both collections.  *apiclient.Client satisfies it.
type API interface {
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	ListClients(ctx context.Context) ([]model.Client, error)
}

// Snapshot is a consistent copy of both collections.
type Snapshot struct {
	Reservations []model.Reservation
	Clients      []model.Client
	Revision     uint64
}

// Store owns the cached collections.
type Store struct {
	api API
	log *slog.Logger

	mu           sync.RWMutex
	loading      bool
	started      bool
	loadErr      error
	reservations []model.Reservation
	clients      []model.Client
	revision     uint64
	// generation changes when a collection is replaced wholesale
	generation uint64
	// session is bumped by Reset; a Load started before it is discarded
	session uint64

	// per-reservation mutation sequence numbers
	issued  map[int64]uint64
	applied map[int64]uint64
}

// New returns a Store in the loading state.
func New(api API, log *slog.Logger) *Store {
	if api == nil {
		panic("nil API passed to store.New")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		api:     api,
		log:     log.With("component", "store"),
		loading: true,
		issued:  map[int64]uint64{},
		applied: map[int64]uint64{},
	}
}

// Load fetches reservations and clients concurrently and waits for both.
// If either fetch fails the store is marked as failed and neither
// collection is kept.  A Load that is still running when Reset is called
// drops its results.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.Load")
	defer span.End()

	s.mu.Lock()
	s.loading = true
	s.started = true
	s.loadErr = nil
	session := s.session
	s.mu.Unlock()

	var (
		wg     sync.WaitGroup
		res    []model.Reservation
		cls    []model.Client
		resErr error
		clsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, resErr = s.api.ListReservations(ctx)
	}()
	go func() {
		defer wg.Done()
		cls, clsErr = s.api.ListClients(ctx)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		metrics.StoreLoads.WithLabelValues("all", "discarded").Inc()
		s.log.Info("discarding data loaded for an ended session")
		return nil
	}
	s.loading = false
	s.revision++
	s.generation++
	if err := errors.Join(resErr, clsErr); err != nil {
		s.loadErr = err
		s.reservations = nil
		s.clients = nil
		metrics.StoreLoads.WithLabelValues("all", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.log.Error("initial data load failed", "err", err)
		s.updateGauges()
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	s.reservations = res
	s.clients = cls
	metrics.StoreLoads.WithLabelValues("all", "ok").Inc()
	s.updateGauges()
	s.log.Info("data loaded", "reservations", len(res), "clients", len(cls))
	return nil
}

// Start runs Load in the background unless a load is running or has
// succeeded since the store was created or last Reset.  After a failed
// load it starts a new one.  It reports whether it started one.
func (s *Store) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.started && (s.loading || s.loadErr == nil) {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.loading = true
	s.loadErr = nil
	s.mu.Unlock()
	go func() { _ = s.Load(ctx) }()
	return true
}

// Reset drops both collections and returns the store to the loading
// state, as after New.  Used when the staff session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.started = false
	s.loadErr = nil
	s.reservations = nil
	s.clients = nil
	s.revision++
	s.generation++
	s.session++
	s.updateGauges()
}

// Loading reports whether the first load is still running.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the load error, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Revision increases on every change of either collection.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Generation increases when a collection is replaced wholesale: by Load,
// a refresh, SetReservations, SetClients or Reset.  Single-element
// changes only bump Revision.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// readable must be called with s.mu held.
func (s *Store) readable() error {
	if s.loading {
		return ErrLoading
	}
	if s.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, s.loadErr)
	}
	return nil
}

// Reservations returns a copy of the cached reservations.
func (s *Store) Reservations() ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(); err != nil {
		return nil, err
	}
	return append([]model.Reservation(nil), s.reservations...), nil
}

// Clients returns a copy of the cached clients.
func (s *Store) Clients() ([]model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(); err != nil {
		return nil, err
	}
	return append([]model.Client(nil), s.clients...), nil
}

// Snapshot returns both collections taken under one lock.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Reservations: append([]model.Reservation(nil), s.reservations...),
		Clients:      append([]model.Client(nil), s.clients...),
		Revision:     s.revision,
	}, nil
}

// Reservation looks up one cached reservation by id.
func (s *Store) Reservation(id int64) (model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reservation{}, false
}

// updateGauges must be called with s.mu held.
func (s *Store) updateGauges() {
	metrics.CachedReservations.Set(float64(len(s.reservations)))
	metrics.CachedClients.Set(float64(len(s.clients)))
}
