package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
	"github.com/sells-group/geoalarm/pkg/geofencing"
	"github.com/sells-group/geoalarm/pkg/geofencing/mocks"
)

var allowed = model.Capabilities{FineLocation: true, BackgroundLocation: true, BackgroundRequired: true}

func testSet(ids ...int64) model.GeofenceSet {
	set := model.GeofenceSet{Version: 1}
	for _, id := range ids {
		set.Geofences = append(set.Geofences, model.Geofence{
			ID: id, Latitude: float64(id), Longitude: -float64(id), Radius: 100 * float64(id+1),
		})
	}
	return set
}

func requestIDs(regs []geofencing.Registration) []string {
	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.RequestID)
	}
	return ids
}

func TestRegistrations(t *testing.T) {
	regs := Registrations(testSet(0, 3, 7))
	require.Len(t, regs, 2)
	assert.Equal(t, geofencing.Registration{
		RequestID:        "3",
		Latitude:         3,
		Longitude:        -3,
		RadiusMeters:     400,
		Triggers:         []geofencing.Trigger{geofencing.TriggerEnter, geofencing.TriggerExit},
		ExpirationMillis: -1,
		InitialTrigger:   geofencing.TriggerEnter,
	}, regs[0])
	assert.Equal(t, "7", regs[1].RequestID)
}

func TestReconcile_Registers(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("RegisterAll", mock.Anything, mock.MatchedBy(func(regs []geofencing.Registration) bool {
		return assert.ObjectsAreEqual([]string{"1", "2"}, requestIDs(regs))
	})).Return(nil).Twice()

	s := NewSyncer(client, nil)
	require.NoError(t, s.Reconcile(context.Background(), testSet(1, 2), allowed))
	require.NoError(t, s.Reconcile(context.Background(), testSet(1, 2), allowed))
}

func TestReconcile_NotPermitted(t *testing.T) {
	tests := []struct {
		name string
		caps model.Capabilities
	}{
		{"no fine location", model.Capabilities{BackgroundLocation: true, BackgroundRequired: true}},
		{"background missing where required", model.Capabilities{FineLocation: true, BackgroundRequired: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockClient(t)
			client.On("UnregisterAll", mock.Anything).Return(nil).Once()

			require.NoError(t, NewSyncer(client, nil).Reconcile(context.Background(), testSet(1), tt.caps))
			client.AssertNotCalled(t, "RegisterAll", mock.Anything, mock.Anything)
		})
	}
}

func TestReconcile_BackgroundNotRequired(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("RegisterAll", mock.Anything, mock.Anything).Return(nil).Once()

	caps := model.Capabilities{FineLocation: true}
	require.NoError(t, NewSyncer(client, nil).Reconcile(context.Background(), testSet(1), caps))
}

func TestReconcile_EmptySet(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("UnregisterAll", mock.Anything).Return(nil).Once()

	require.NoError(t, NewSyncer(client, nil).Reconcile(context.Background(), testSet(), allowed))
}

func TestReconcile_OnlyZeroIDs(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("UnregisterAll", mock.Anything).Return(nil).Once()

	require.NoError(t, NewSyncer(client, nil).Reconcile(context.Background(), testSet(0), allowed))
}

func TestReconcile_FailureWrappedNotRetried(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("RegisterAll", mock.Anything, mock.Anything).Return(errors.New("service down")).Once()

	m := monitoring.NewMetrics(prometheus.NewRegistry())
	err := NewSyncer(client, m).Reconcile(context.Background(), testSet(1), allowed)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrRegistration))
	assert.Contains(t, err.Error(), "service down")
	client.AssertNumberOfCalls(t, "RegisterAll", 1)
}

func TestReconcile_UnregisterFailure(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("UnregisterAll", mock.Anything).Return(errors.New("timeout")).Once()

	err := NewSyncer(client, nil).Reconcile(context.Background(), testSet(), allowed)
	assert.True(t, eris.Is(err, model.ErrRegistration))
}

// recordingClient records calls in order for Run tests.
type recordingClient struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingClient) RegisterAll(_ context.Context, regs []geofencing.Registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "register:"+joinIDs(regs))
	return nil
}

func (c *recordingClient) UnregisterAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "unregister")
	return nil
}

func (c *recordingClient) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.calls...)
}

func (c *recordingClient) last() string {
	calls := c.snapshot()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

func joinIDs(regs []geofencing.Registration) string {
	out := ""
	for i, id := range requestIDs(regs) {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

func TestRun_WaitsForBothStreams(t *testing.T) {
	client := &recordingClient{}
	sets := make(chan model.GeofenceSet, 1)
	caps := make(chan model.Capabilities, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSyncer(client, nil).Run(ctx, sets, caps) }()

	sets <- testSet(1)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, client.snapshot())

	caps <- allowed
	assert.Eventually(t, func() bool { return client.last() == "register:1" }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRun_FollowsLatestState(t *testing.T) {
	client := &recordingClient{}
	sets := make(chan model.GeofenceSet, 1)
	caps := make(chan model.Capabilities, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewSyncer(client, nil).Run(ctx, sets, caps) }()

	sets <- testSet(1)
	caps <- model.Capabilities{}
	assert.Eventually(t, func() bool { return client.last() == "unregister" }, time.Second, 5*time.Millisecond)

	caps <- allowed
	assert.Eventually(t, func() bool { return client.last() == "register:1" }, time.Second, 5*time.Millisecond)

	sets <- testSet(1, 2)
	assert.Eventually(t, func() bool { return client.last() == "register:1,2" }, time.Second, 5*time.Millisecond)

	sets <- testSet()
	assert.Eventually(t, func() bool { return client.last() == "unregister" }, time.Second, 5*time.Millisecond)
}

func TestRun_CapabilityFlipRegistersOnce(t *testing.T) {
	client := &recordingClient{}
	sets := make(chan model.GeofenceSet, 1)
	caps := make(chan model.Capabilities, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewSyncer(client, nil).Run(ctx, sets, caps) }()

	sets <- testSet(1, 2)
	caps <- model.Capabilities{FineLocation: true, BackgroundRequired: true}
	assert.Eventually(t, func() bool { return client.last() == "unregister" }, time.Second, 5*time.Millisecond)
	before := client.snapshot()

	caps <- allowed
	assert.Eventually(t, func() bool { return len(client.snapshot()) > len(before) }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	after := client.snapshot()
	require.Len(t, after, len(before)+1)
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, "register:1,2", after[len(before)])
}

func TestRun_StopsWhenStreamCloses(t *testing.T) {
	sets := make(chan model.GeofenceSet)
	caps := make(chan model.Capabilities)
	done := make(chan error, 1)
	go func() { done <- NewSyncer(&recordingClient{}, nil).Run(context.Background(), sets, caps) }()

	close(sets)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stream closed")
	}
}
