package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/sells-group/geoalarm/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSink records every effect it receives.
type fakeSink struct {
	mu        sync.Mutex
	notified  []model.Notification
	plays     int
	stops     int
	vibrates  int
	notifyErr error
}

func (f *fakeSink) Notify(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, n)
	return f.notifyErr
}

func (f *fakeSink) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeSink) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeSink) Vibrate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vibrates++
	return nil
}

func (f *fakeSink) counts() (plays, stops, vibrates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays, f.stops, f.vibrates
}

func (f *fakeSink) notifications() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification{}, f.notified...)
}

var errSink = errors.New("sink unavailable")
