package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/geocode"
	"github.com/woozymasta/geomap/internal/mapview"
	"github.com/woozymasta/geomap/internal/routing"
)

type stubGeocoder struct{}

func (stubGeocoder) Search(ctx context.Context, query string) (geo.Place, error) {
	return geo.Place{}, geocode.ErrNotFound
}

type stubRouter struct{}

func (stubRouter) Route(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error) {
	return routing.Route{}, routing.ErrNoRoute
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.Config{}
	cfg.Normalize()
	cfg.Views.Limit = 2

	return NewStore(cfg, stubGeocoder{}, stubRouter{})
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	point, err := s.Create(KindPoint)
	if err != nil {
		t.Fatalf("Create(point): %v", err)
	}
	if point.Point == nil || point.Route != nil {
		t.Errorf("point view not mounted: %+v", point)
	}

	route, err := s.Create(KindRoute)
	if err != nil {
		t.Fatalf("Create(route): %v", err)
	}
	if route.Route == nil || route.ID == point.ID {
		t.Errorf("route view not mounted: %+v", route)
	}

	got, err := s.Get(point.ID)
	if err != nil || got != point {
		t.Errorf("Get() = %v, %v", got, err)
	}

	st := got.State()
	if st.Point == nil || st.Point.Center != config.DefaultCenter || st.Scene.Center != config.DefaultCenter {
		t.Errorf("default center not injected: %+v", st)
	}
}

func TestCreateErrors(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("globe"); !errors.Is(err, ErrKind) {
		t.Errorf("Create(globe) = %v", err)
	}

	_, _ = s.Create(KindPoint)
	_, _ = s.Create(KindPoint)
	if _, err := s.Create(KindPoint); !errors.Is(err, ErrLimit) {
		t.Errorf("third Create() = %v, want ErrLimit", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	v, _ := s.Create(KindRoute)
	if n := s.Len(); n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}

	if err := s.Delete(v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Len() after delete = %d", n)
	}
	if _, err := s.Get(v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := s.Delete(v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

func TestSweep(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old, _ := s.Create(KindPoint)
	now = now.Add(20 * time.Minute)
	fresh, _ := s.Create(KindPoint)
	now = now.Add(15 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, err := s.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("idle view kept")
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh view removed: %v", err)
	}
}

func TestGetDuringSweepKeepsView(t *testing.T) {
	s := newTestStore(t)
	s.limit = 0
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ids := make([]string, 0, 64)
	for i := 0; i < cap(ids); i++ {
		v, err := s.Create(KindPoint)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, v.ID)
	}
	// every view is idle, only a Get can save it
	now = now.Add(time.Hour)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []string
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Get(id); err == nil {
				mu.Lock()
				got = append(got, id)
				mu.Unlock()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Sweep()
	}()
	wg.Wait()

	s.Sweep()
	for _, id := range got {
		if _, err := s.Get(id); err != nil {
			t.Errorf("view %s handed out by Get was swept", id)
		}
	}
}

func TestNoticesDrained(t *testing.T) {
	s := newTestStore(t)
	v, _ := s.Create(KindPoint)

	v.Point.SetQuery("zzzzznotreal")
	_ = v.Point.Search(context.Background())

	st := v.State()
	if len(st.Notices) != 1 || st.Notices[0].Message != mapview.MsgNotFound {
		t.Fatalf("notices = %+v", st.Notices)
	}
	if again := v.State(); len(again.Notices) != 0 {
		t.Errorf("notices not drained: %+v", again.Notices)
	}
}

func TestNoticeQueueBounded(t *testing.T) {
	v := &View{}
	for i := 0; i < maxNotices+5; i++ {
		v.Notify(mapview.Notice{Message: "n"})
	}
	if n := len(v.Drain()); n != maxNotices {
		t.Errorf("queued = %d, want %d", n, maxNotices)
	}
}
