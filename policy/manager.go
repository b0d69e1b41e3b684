// Package policy loads the organizational rules applied after retrieval:
// institution priority, typed policy settings, and the process keyword to
// equipment category mapping. Tables are swapped as whole snapshots so
// readers never observe a partial reload.
package policy

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/fabmatch/clock"
)

// DefaultSettingsTTL is how long loaded settings are served before a lazy refresh.
const DefaultSettingsTTL = 300 * time.Second

// Option configures a Manager.
type Option func(*Manager) error

// WithClock sets the clock used for the settings TTL.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		m.clock = c
		return nil
	}
}

// WithSettingsTTL sets how long settings are cached.
func WithSettingsTTL(ttl time.Duration) Option {
	return func(m *Manager) error {
		if ttl <= 0 {
			return errors.New("settings ttl must be positive")
		}
		m.ttl = ttl
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

type cachedSettings struct {
	settings Settings
	err      error
	loadedAt time.Time
}

// Manager serves policy tables loaded from a directory.
type Manager struct {
	dir    string
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger

	tables   atomic.Pointer[Tables]
	settings atomic.Pointer[cachedSettings]
	refresh  sync.Mutex
}

// NewManager creates a manager for dir and performs the initial load. Load
// problems are logged and leave the affected table empty; they do not fail
// construction.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		return nil, ErrPolicyDirRequired
	}
	m := &Manager{
		dir:    dir,
		clock:  clock.System{},
		ttl:    DefaultSettingsTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	_ = m.Reload()
	return m, nil
}

// Dir returns the policy directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Reload re-reads every policy file.
func (m *Manager) Reload() error {
	tables, tablesErr := loadTables(m.dir)
	m.tables.Store(tables)
	if tablesErr != nil {
		m.logger.Warn("policy tables loaded with errors", "dir", m.dir, "err", tablesErr)
	}

	settingsErr := m.loadSettings()
	m.logger.Info("policy reloaded", "dir", m.dir,
		"institutions", len(tables.institutions), "mappings", len(tables.mappings))
	return errors.Join(tablesErr, settingsErr)
}

func (m *Manager) loadSettings() error {
	settings, err := loadSettings(m.dir)
	if err != nil {
		m.logger.Warn("policy settings unavailable", "dir", m.dir, "err", err)
	}
	m.settings.Store(&cachedSettings{settings: settings, err: err, loadedAt: m.clock.Now()})
	return err
}

// Settings returns the current policy settings, reloading the settings file
// when the cached copy has expired. The error reports a failed load; the
// returned Settings is then empty.
func (m *Manager) Settings() (Settings, error) {
	cached := m.settings.Load()
	if m.clock.Now().Sub(cached.loadedAt) <= m.ttl {
		return cached.settings, cached.err
	}

	m.refresh.Lock()
	defer m.refresh.Unlock()
	// Another caller may have refreshed while we waited.
	if cached = m.settings.Load(); m.clock.Now().Sub(cached.loadedAt) <= m.ttl {
		return cached.settings, cached.err
	}
	_ = m.loadSettings()
	cached = m.settings.Load()
	return cached.settings, cached.err
}

// Tables returns the current institution and mapping snapshot.
func (m *Manager) Tables() *Tables {
	return m.tables.Load()
}

// InstitutionRank returns the priority of an institution.
func (m *Manager) InstitutionRank(institution string) int {
	return m.tables.Load().Rank(institution)
}

// MapCategories returns the equipment categories implied by process keywords
// in query.
func (m *Manager) MapCategories(query string) []string {
	return m.tables.Load().MapCategories(query)
}
