package api

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlasmap-sc/clusterer/internal/cache"
	"github.com/atlasmap-sc/clusterer/internal/clusterer"
	"github.com/atlasmap-sc/clusterer/internal/service"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionRegistryConfig contains configuration for the session registry.
type SessionRegistryConfig struct {
	Engine        clusterer.Config
	Cache         *cache.Manager
	DefaultWidth  int
	DefaultHeight int
	Title         string
	MaxSessions   int           // default 256
	SessionTTL    time.Duration // idle sessions older than this are closed
	CleanupPeriod time.Duration
}

// SessionInfo describes a session in API responses.
type SessionInfo struct {
	ID       string    `json:"id"`
	LastUsed time.Time `json:"last_used"`
}

// SessionRegistry holds the live clustering sessions.
type SessionRegistry struct {
	cfg      SessionRegistryConfig
	mu       sync.Mutex
	sessions map[string]*service.ClusterService
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry(cfg SessionRegistryConfig) *SessionRegistry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	return &SessionRegistry{
		cfg:      cfg,
		sessions: make(map[string]*service.ClusterService),
		stopCh:   make(chan struct{}),
	}
}

// Start starts the idle session cleaner.
func (r *SessionRegistry) Start() {
	r.wg.Add(1)
	go r.cleaner()
}

// Stop stops the cleaner and closes every session.
func (r *SessionRegistry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()

		r.mu.Lock()
		defer r.mu.Unlock()
		for id, svc := range r.sessions {
			svc.Close()
			delete(r.sessions, id)
		}
	})
}

// Create opens a new session.
func (r *SessionRegistry) Create() (*service.ClusterService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		return nil, errors.New("too many sessions")
	}

	id := uuid.NewString()
	svc := service.NewClusterService(service.ClusterServiceConfig{
		ID:            id,
		Engine:        r.cfg.Engine,
		Cache:         r.cfg.Cache,
		DefaultWidth:  r.cfg.DefaultWidth,
		DefaultHeight: r.cfg.DefaultHeight,
	})
	r.sessions[id] = svc
	log.Printf("[Sessions] created %s (%d open)", id, len(r.sessions))
	return svc, nil
}

// Get returns a session by id.
func (r *SessionRegistry) Get(id string) (*service.ClusterService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return svc, nil
}

// Delete closes and forgets a session.
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	svc, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	svc.Close()
	log.Printf("[Sessions] closed %s", id)
	return nil
}

// Sessions lists the open sessions, most recently used first.
func (r *SessionRegistry) Sessions() []SessionInfo {
	r.mu.Lock()
	svcs := make([]*service.ClusterService, 0, len(r.sessions))
	for _, svc := range r.sessions {
		svcs = append(svcs, svc)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(svcs))
	for _, svc := range svcs {
		infos = append(infos, SessionInfo{ID: svc.ID(), LastUsed: svc.LastUsed()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].LastUsed.After(infos[j].LastUsed) })
	return infos
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Title returns the configured site title.
func (r *SessionRegistry) Title() string {
	if r.cfg.Title != "" {
		return r.cfg.Title
	}
	return "Feature Clusterer"
}

// Engine returns the engine options new sessions use.
func (r *SessionRegistry) Engine() clusterer.Config { return r.cfg.Engine }

func (r *SessionRegistry) cleaner() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.cleanup(time.Now())
		}
	}
}

// cleanup closes sessions idle since before now minus the TTL.
func (r *SessionRegistry) cleanup(now time.Time) int {
	cutoff := now.Add(-r.cfg.SessionTTL)

	r.mu.Lock()
	var expired []*service.ClusterService
	for id, svc := range r.sessions {
		if svc.LastUsed().Before(cutoff) {
			expired = append(expired, svc)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, svc := range expired {
		svc.Close()
	}
	if len(expired) > 0 {
		log.Printf("[Sessions] cleaned up %d idle sessions", len(expired))
	}
	return len(expired)
}
