package cachesync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/sessionconf/internal/session"
)

// DescriptorReader is the storage view the publisher needs.
type DescriptorReader interface {
	GetDescriptor(ctx context.Context) (session.Descriptor, error)
}

// PublisherOption configures Publisher behaviour.
type PublisherOption func(*Publisher)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.clock = clock
	}
}

// Publisher issues cache sync commands when the stored CommandsConfig allows it.
type Publisher struct {
	settings DescriptorReader
	hub      *Hub
	logger   *zap.Logger
	clock    func() time.Time
}

// NewPublisher constructs a Publisher broadcasting through hub.
func NewPublisher(settings DescriptorReader, hub *Hub, logger *zap.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		settings: settings,
		hub:      hub,
		logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish validates and broadcasts a command. Storage errors are returned
// unchanged so callers can inspect the data-access failure.
func (p *Publisher) Publish(ctx context.Context, kind Kind, key string) (Command, error) {
	if !kind.Valid() {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if key == "" {
		return Command{}, ErrEmptyKey
	}

	d, err := p.settings.GetDescriptor(ctx)
	if err != nil {
		return Command{}, err
	}
	if !d.Commands.CacheSync() {
		return Command{}, ErrCacheSyncDisabled
	}

	cmd := Command{
		ID:       uuid.New().String(),
		Kind:     kind,
		Key:      key,
		IssuedAt: p.clock(),
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Command{}, fmt.Errorf("encode command: %w", err)
	}
	p.hub.Broadcast(data)

	p.logger.Debug("cache sync command published",
		zap.String("id", cmd.ID),
		zap.String("kind", string(cmd.Kind)),
		zap.String("key", cmd.Key),
		zap.Int("peers", p.hub.ClientCount()),
	)
	return cmd, nil
}
