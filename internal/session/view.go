package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/woozymasta/geomap/internal/mapview"
)

// maxNotices bounds the queue of undrained notices per view.
const maxNotices = 32

// View is one mounted map widget with its scene and queued notices.
// Exactly one of Point and Route is set, depending on Kind.
type View struct {
	Created time.Time
	Scene   *mapview.Scene
	Point   *mapview.PointView
	Route   *mapview.RouteView
	ID      string
	Kind    Kind
	notices []mapview.Notice
	seen    atomic.Int64
	mu      sync.Mutex
}

// State is the JSON representation of a view.
type State struct {
	Point   *mapview.PointState `json:"point,omitempty"`
	Route   *mapview.RouteState `json:"route,omitempty"`
	ID      string              `json:"id"`
	Kind    Kind                `json:"kind"`
	Notices []mapview.Notice    `json:"notices"`
	Scene   mapview.SceneState  `json:"scene"`
}

// Notify queues a notice for the page. Implements mapview.Notifier.
func (v *View) Notify(n mapview.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.notices) >= maxNotices {
		v.notices = v.notices[1:]
	}
	v.notices = append(v.notices, n)
}

// Drain returns and clears the queued notices.
func (v *View) Drain() []mapview.Notice {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := v.notices
	v.notices = nil
	if out == nil {
		out = []mapview.Notice{}
	}

	return out
}

// State snapshots the view and drains its notices.
func (v *View) State() State {
	st := State{
		ID:    v.ID,
		Kind:  v.Kind,
		Scene: v.Scene.Snapshot(),
	}

	switch {
	case v.Point != nil:
		ps := v.Point.State()
		st.Point = &ps
	case v.Route != nil:
		rs := v.Route.State()
		st.Route = &rs
	}

	st.Notices = v.Drain()

	return st
}

func (v *View) touch(t time.Time) { v.seen.Store(t.UnixNano()) }

func (v *View) lastSeen() time.Time { return time.Unix(0, v.seen.Load()) }
