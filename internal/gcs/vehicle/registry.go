package vehicle

import (
	"sort"
	"sync"

	"github.com/groundlink-io/groundlink/internal/gcs/correlator"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/pkg/metrics"
	"github.com/groundlink-io/groundlink/pkg/log"
)

// Registry owns the sessions of one connection, keyed by the sender
// address of inbound traffic. Sessions are created on first sight and
// live until the connection closes.
type Registry struct {
	sender Sender
	corr   *correlator.Correlator
	cfg    Config
	notify EventListener
	log    log.Logger

	mu       sync.RWMutex
	sessions map[mav.VehicleKey]*Session
}

func NewRegistry(sender Sender, corr *correlator.Correlator, cfg Config, notify EventListener) *Registry {
	return &Registry{
		sender:   sender,
		corr:     corr,
		cfg:      cfg,
		notify:   notify,
		log:      log.WithName("registry"),
		sessions: make(map[mav.VehicleKey]*Session),
	}
}

// Dispatch routes one inbound packet: it finds or creates the session for
// the packet's sender, feeds the session, and offers the message to every
// pending command exchange. Called from the connection's single inbound
// loop.
func (r *Registry) Dispatch(p *mav.Packet) {
	s := r.getOrCreate(p.Key())
	s.HandleMessage(p)
	r.corr.Offer(p.Message)
}

func (r *Registry) getOrCreate(key mav.VehicleKey) *Session {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	if s, ok = r.sessions[key]; ok {
		r.mu.Unlock()
		return s
	}

	s = newSession(key, r.sender, r.corr, r.cfg, r.notify)
	r.sessions[key] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.log.Info("Vehicle discovered", "vehicle", key.String(), "total", count)
	metrics.VehiclesDiscovered.Set(float64(count))

	s.StartHeartbeat(r.cfg.HeartbeatInterval)

	if r.notify != nil {
		r.notify(Event{Key: key, Type: EventDiscovered})
	}
	return s
}

// Get returns the session for key, if one exists.
func (r *Registry) Get(key mav.VehicleKey) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	return s, ok
}

// GetAll returns every live session, ordered by vehicle key.
func (r *Registry) GetAll() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.SystemID != b.SystemID {
			return a.SystemID < b.SystemID
		}
		return a.ComponentID < b.ComponentID
	})
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// DestroyAll tears down every session. Used on disconnect.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[mav.VehicleKey]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Destroy()
	}
	metrics.VehiclesDiscovered.Set(0)
}
