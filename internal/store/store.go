package store

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/stream"
)

// Repository is raw access to the geofence table. Implementations assign ids
// that are monotonic, non-zero and never reused.
type Repository interface {
	Insert(ctx context.Context, g model.Geofence) (int64, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]model.Geofence, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Store is the durable geofence store with change notification.
type Store interface {
	Insert(ctx context.Context, lat, lon, radius float64) (int64, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	List(ctx context.Context) (model.GeofenceSet, error)
	Subscribe(ctx context.Context) <-chan model.GeofenceSet
	Close() error
}

// GeofenceStore is the single writer in front of a Repository. It serialises
// mutations and publishes a new snapshot after each one, in mutation order.
type GeofenceStore struct {
	repo Repository
	mu   sync.Mutex
	out  *stream.Broadcaster[model.GeofenceSet]
}

var _ Store = (*GeofenceStore)(nil)

// New migrates repo, loads its contents and returns a store publishing
// snapshots of it.
func New(ctx context.Context, repo Repository) (*GeofenceStore, error) {
	if err := repo.Migrate(ctx); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "store: migrate: %v", err)
	}
	existing, err := repo.List(ctx)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "store: load geofences: %v", err)
	}
	return &GeofenceStore{
		repo: repo,
		out:  stream.NewBroadcaster(model.GeofenceSet{Version: 1, Geofences: existing}),
	}, nil
}

// Insert persists a new geofence and returns its id.
func (s *GeofenceStore) Insert(ctx context.Context, lat, lon, radius float64) (int64, error) {
	if err := model.ValidateGeofence(lat, lon, radius); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := model.Geofence{Latitude: lat, Longitude: lon, Radius: radius}
	id, err := s.repo.Insert(ctx, g)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "store: insert geofence: %v", err)
	}
	if id == 0 {
		return 0, eris.Wrap(model.ErrPersistence, "store: repository assigned id 0")
	}
	g.ID = id

	s.out.Update(func(cur model.GeofenceSet) model.GeofenceSet {
		next := make([]model.Geofence, 0, len(cur.Geofences)+1)
		next = append(next, cur.Geofences...)
		next = append(next, g)
		return model.GeofenceSet{Version: cur.Version + 1, Geofences: next}
	})

	zap.L().Debug("store: geofence inserted",
		zap.Int64("id", id),
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lon),
		zap.Float64("radius", radius),
	)
	return id, nil
}

// Delete removes the geofence with id. Deleting an unknown id is a no-op.
func (s *GeofenceStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.out.Current().Find(id); !ok {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return eris.Wrapf(model.ErrPersistence, "store: delete geofence %d: %v", id, err)
	}

	s.out.Update(func(cur model.GeofenceSet) model.GeofenceSet {
		next := make([]model.Geofence, 0, len(cur.Geofences))
		for _, g := range cur.Geofences {
			if g.ID != id {
				next = append(next, g)
			}
		}
		return model.GeofenceSet{Version: cur.Version + 1, Geofences: next}
	})
	zap.L().Debug("store: geofence deleted", zap.Int64("id", id))
	return nil
}

// Clear removes every geofence.
func (s *GeofenceStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		return eris.Wrapf(model.ErrPersistence, "store: clear geofences: %v", err)
	}
	s.out.Update(func(cur model.GeofenceSet) model.GeofenceSet {
		return model.GeofenceSet{Version: cur.Version + 1, Geofences: []model.Geofence{}}
	})
	zap.L().Debug("store: geofences cleared")
	return nil
}

// List returns the current snapshot.
func (s *GeofenceStore) List(_ context.Context) (model.GeofenceSet, error) {
	return s.out.Current(), nil
}

// Subscribe streams snapshots, starting with the current one, until ctx ends.
func (s *GeofenceStore) Subscribe(ctx context.Context) <-chan model.GeofenceSet {
	return s.out.Subscribe(ctx)
}

// Close ends every subscription and closes the repository.
func (s *GeofenceStore) Close() error {
	s.out.Close()
	return s.repo.Close()
}
