// Package capability tracks the permissions the platform has granted.
package capability

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/stream"
)

// Reader exposes the current capabilities.
type Reader interface {
	Current() model.Capabilities
}

// Source holds the capability state and streams changes to it.
type Source struct {
	mu  sync.Mutex
	out *stream.Broadcaster[model.Capabilities]
}

var _ Reader = (*Source)(nil)

// NewSource returns a Source seeded with initial.
func NewSource(initial model.Capabilities) *Source {
	return &Source{out: stream.NewBroadcaster(initial)}
}

// Current returns the latest capabilities.
func (s *Source) Current() model.Capabilities {
	return s.out.Current()
}

// Set replaces the capabilities. Subscribers are only notified on change.
func (s *Source) Set(c model.Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out.Current() == c {
		return
	}
	s.out.Publish(c)
	zap.L().Info("capability: permissions changed",
		zap.Bool("fine_location", c.FineLocation),
		zap.Bool("background_location", c.BackgroundLocation),
		zap.Bool("notifications", c.Notifications),
		zap.Bool("can_register", c.CanRegister()),
	)
}

// Subscribe streams capabilities, starting with the current value.
func (s *Source) Subscribe(ctx context.Context) <-chan model.Capabilities {
	return s.out.Subscribe(ctx)
}

// Close ends every subscription.
func (s *Source) Close() {
	s.out.Close()
}
