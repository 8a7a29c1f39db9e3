// Package session manages active analysis sessions: each session pins one
// year/track/session tuple loaded from the provider, plus the per-session
// telemetry cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/log"
	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/telemetry"
)

// SessionMaxAge is how long completed sessions are kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects recently used sessions from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// Errors returned by the manager.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotReady = errors.New("session is not ready")
	ErrTooManySessions = errors.New("session limit reached")
)

// Manager handles active analysis sessions.
type Manager struct {
	sessions    map[string]*State
	mu          sync.RWMutex
	loader      *f1data.Loader
	tempDir     string
	maxSessions int
}

// State holds a session, its entrants, and the lap and telemetry caches.
type State struct {
	Session      *models.AnalysisSession
	Drivers      []models.Driver
	laps         map[int][]models.Lap // keyed by driver number
	store        *telemetry.Store
	LastAccessed time.Time
}

// NewManager creates a session manager. tempDir hosts the per-session
// DuckDB files.
func NewManager(loader *f1data.Loader, tempDir string, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = 10
	}
	return &Manager{
		sessions:    make(map[string]*State),
		loader:      loader,
		tempDir:     tempDir,
		maxSessions: maxSessions,
	}
}

// StartSession begins loading a year/track/session tuple in the background
// and returns the pending session immediately.
func (m *Manager) StartSession(year int, track, code string) (*models.AnalysisSession, error) {
	if err := m.evictIfAtLimit(); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	sess := models.NewAnalysisSession(sessionID, year, track, code)
	sess.Status = models.StatusLoading

	m.mu.Lock()
	m.sessions[sessionID] = &State{
		Session:      sess,
		laps:         make(map[int][]models.Lap),
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.runLoad(sessionID, year, track, code)

	// Hand out a copy: the loader goroutine keeps mutating the stored
	// session under m.mu.
	snapshot := *sess
	return &snapshot, nil
}

func (m *Manager) runLoad(sessionID string, year int, track, code string) {
	defer func() {
		if r := recover(); r != nil {
			log.L().Error("session load panicked",
				zap.String("session", shortID(sessionID)), zap.Any("panic", r))
			m.failSession(sessionID, fmt.Sprintf("load panicked: %v", r))
		}
	}()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m.setProgress(sessionID, 10)

	info, drivers, err := m.loader.LoadSession(ctx, year, track, code)
	if err != nil {
		m.failSession(sessionID, err.Error())
		return
	}
	m.setProgress(sessionID, 70)

	store, err := telemetry.NewStore(m.tempDir, sessionID)
	if err != nil {
		m.failSession(sessionID, fmt.Sprintf("creating telemetry store: %v", err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		// Session was evicted while loading.
		store.Close()
		return
	}
	state.Drivers = drivers
	state.store = store
	state.Session.Info = info
	state.Session.Status = models.StatusComplete
	state.Session.Progress = 100

	log.L().Info("session ready",
		zap.String("session", shortID(sessionID)),
		zap.String("event", info.Event),
		zap.Int("drivers", len(drivers)),
		zap.Duration("elapsed", time.Since(start)))
}

func (m *Manager) setProgress(sessionID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = progress
	}
}

func (m *Manager) failSession(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.Session.Status = models.StatusError
	state.Session.Error = reason
	log.L().Warn("session load failed",
		zap.String("session", shortID(sessionID)), zap.String("reason", reason))
}

// GetSession returns a snapshot of a session by ID. Callers get a copy so
// they can read it without holding the manager lock.
func (m *Manager) GetSession(id string) (*models.AnalysisSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.Session
	return &snapshot, true
}

// List returns a snapshot of all sessions.
func (m *Manager) List() []*models.AnalysisSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.AnalysisSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		snapshot := *state.Session
		out = append(out, &snapshot)
	}
	return out
}

// TouchSession refreshes the keep-alive timestamp of a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// ready returns the state of a completed session.
func (m *Manager) ready(id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Session.Status != models.StatusComplete {
		return nil, fmt.Errorf("status %s: %w", state.Session.Status, ErrSessionNotReady)
	}
	return state, nil
}

// Drivers returns the entrants of a completed session.
func (m *Manager) Drivers(id string) ([]models.Driver, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}
	return state.Drivers, nil
}

// Driver resolves a three-letter driver code within a session.
func (m *Manager) Driver(id, code string) (models.Driver, error) {
	drivers, err := m.Drivers(id)
	if err != nil {
		return models.Driver{}, err
	}
	driver, ok := f1data.DriverByCode(drivers, code)
	if !ok {
		return models.Driver{}, fmt.Errorf("%q: %w", code, f1data.ErrDriverNotFound)
	}
	return driver, nil
}

// Laps returns the laps of a driver, fetching them once per session.
func (m *Manager) Laps(ctx context.Context, id string, driverNumber int) ([]models.Lap, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	laps, ok := state.laps[driverNumber]
	m.mu.RUnlock()
	if ok {
		return laps, nil
	}

	laps, err = m.loader.Laps(ctx, state.Session.Info.SessionKey, driverNumber)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	state.laps[driverNumber] = laps
	m.mu.Unlock()
	return laps, nil
}

// Telemetry returns the frame for a driver/lap, serving repeat requests from
// the per-session store instead of the provider.
func (m *Manager) Telemetry(ctx context.Context, id string, driverNumber int, lap models.Lap) (models.TelemetryFrame, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}

	stored, err := state.store.HasLap(ctx, driverNumber, lap.Number)
	if err != nil {
		return nil, err
	}
	if stored {
		return state.store.LoadLap(ctx, driverNumber, lap.Number)
	}

	frame, err := m.loader.Telemetry(ctx, state.Session.Info.SessionKey, driverNumber, lap)
	if err != nil {
		return nil, err
	}
	if err := state.store.SaveLap(ctx, driverNumber, lap.Number, frame); err != nil {
		// The store is a cache; a failed save is not fatal.
		log.L().Warn("saving lap to telemetry store failed",
			zap.String("session", shortID(id)), zap.Error(err))
	}
	return frame, nil
}

// TelemetryRange returns the slice of a lap between two distances along the
// lap, served from the per-session store.
func (m *Manager) TelemetryRange(ctx context.Context, id string, driverNumber int, lap models.Lap, minDist, maxDist float64) (models.TelemetryFrame, error) {
	state, err := m.ready(id)
	if err != nil {
		return nil, err
	}

	stored, err := state.store.HasLap(ctx, driverNumber, lap.Number)
	if err != nil {
		return nil, err
	}
	if !stored {
		// Populate the store first. If the save failed (the store is a
		// cache), filter the fetched frame directly.
		frame, err := m.Telemetry(ctx, id, driverNumber, lap)
		if err != nil {
			return nil, err
		}
		if stored, err = state.store.HasLap(ctx, driverNumber, lap.Number); err != nil || !stored {
			filtered := make(models.TelemetryFrame, 0, len(frame))
			for _, s := range frame {
				if s.Distance >= minDist && s.Distance <= maxDist {
					filtered = append(filtered, s)
				}
			}
			return filtered, nil
		}
	}
	return state.store.QueryRange(ctx, driverNumber, lap.Number, minDist, maxDist)
}

// Delete removes a session and its telemetry store.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	if state.store != nil {
		state.store.Close()
	}
	delete(m.sessions, id)
	return true
}

// evictIfAtLimit removes finished sessions when at capacity. Returns an
// error when every slot is held by a session still loading.
func (m *Manager) evictIfAtLimit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.maxSessions {
		return nil
	}

	toFree := len(m.sessions) - m.maxSessions + 1
	freed := 0
	for id, state := range m.sessions {
		if freed >= toFree {
			break
		}
		if state.Session.Status != models.StatusComplete &&
			state.Session.Status != models.StatusError {
			continue
		}
		if state.store != nil {
			state.store.Close()
		}
		delete(m.sessions, id)
		freed++
		log.L().Info("evicted session to free a slot", zap.String("session", shortID(id)))
	}
	if freed < toFree {
		return ErrTooManySessions
	}
	return nil
}

// CleanupOldSessions removes finished sessions older than maxAge, keeping
// any accessed within the keep-alive window.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAlive := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Session.Status != models.StatusComplete &&
			state.Session.Status != models.StatusError {
			continue
		}
		if state.LastAccessed.After(keepAlive) || state.LastAccessed.After(cutoff) {
			continue
		}
		if state.store != nil {
			state.store.Close()
		}
		delete(m.sessions, id)
		log.L().Info("cleaned up aged session",
			zap.String("session", shortID(id)),
			zap.Duration("idle", time.Since(state.LastAccessed).Round(time.Second)))
	}
}

// Shutdown closes every session's telemetry store.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, state := range m.sessions {
		if state.store != nil {
			state.store.Close()
		}
		delete(m.sessions, id)
	}
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
