package storage

import (
	"context"
	"sync"
	"time"

	"github.com/eugenenazirov/sessionconf/internal/session"
)

// Storage provides access to the session descriptor served by the application.
// Implementations report data-access failures as *dao.Error.
type Storage interface {
	GetDescriptor(ctx context.Context) (session.Descriptor, error)
	// UpdatedAt reports when the stored descriptor last changed.
	UpdatedAt(ctx context.Context) (time.Time, error)
	SetCommands(ctx context.Context, commands session.CommandsConfig) error
	SetNamingService(ctx context.Context, naming session.RMIRegistryNamingServiceConfig) error
	Close() error
}

// Option configures a Storage implementation.
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock overrides the time source used for UpdatedAt, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns SQLite storage for a non-empty path and memory storage otherwise.
func Open(path string, opts ...Option) (Storage, error) {
	if path == "" {
		return NewMemoryStorage(opts...), nil
	}
	return NewSQLiteStorage(path, opts...)
}

// MemoryStorage keeps the descriptor in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	clock func() time.Time

	mu         sync.RWMutex
	descriptor session.Descriptor
	updatedAt  time.Time
}

// NewMemoryStorage initialises storage with the default descriptor.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	o := buildOptions(opts)
	return &MemoryStorage{
		clock:      o.clock,
		descriptor: session.DefaultDescriptor(),
		updatedAt:  o.clock(),
	}
}

// GetDescriptor returns a defensive copy of the stored descriptor.
func (s *MemoryStorage) GetDescriptor(_ context.Context) (session.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.descriptor.Clone(), nil
}

// UpdatedAt returns the time of the last write, or of construction.
func (s *MemoryStorage) UpdatedAt(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updatedAt, nil
}

// SetCommands replaces the stored commands config.
func (s *MemoryStorage) SetCommands(_ context.Context, commands session.CommandsConfig) error {
	s.mu.Lock()
	s.descriptor.Commands = commands
	s.updatedAt = s.clock()
	s.mu.Unlock()

	return nil
}

// SetNamingService replaces the stored naming service config.
func (s *MemoryStorage) SetNamingService(_ context.Context, naming session.RMIRegistryNamingServiceConfig) error {
	// Copy through Clone so the caller keeps no handle on the stored URL.
	detached := session.Descriptor{NamingService: naming}.Clone().NamingService

	s.mu.Lock()
	s.descriptor.NamingService = detached
	s.updatedAt = s.clock()
	s.mu.Unlock()

	return nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
