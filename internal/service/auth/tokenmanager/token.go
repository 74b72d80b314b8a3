package tokenmanager

import (
	"sync"
	"time"
)

const defaultLeadTime = 60 * time.Second

// Manager keeps access and refresh tokens issued by the sequencer
// and tells when the access token has to be refreshed.
//
// Every method is synchronized on its own, so check-then-refresh sequences
// are not atomic and must be serialized by the caller.
type Manager struct {
	mu       sync.Mutex
	access   string
	refresh  string
	leadTime time.Duration
	window   *Window
}

// New creates manager with access token valid for validity and default lead time
func New(access string, refresh string, validity time.Duration) *Manager {
	return newManager(access, refresh, validity, time.Now)
}

func newManager(access string, refresh string, validity time.Duration, now func() time.Time) *Manager {
	return &Manager{
		access:   access,
		refresh:  refresh,
		leadTime: defaultLeadTime,
		window:   newWindow(validity, now),
	}
}

// RefreshRequired reports whether access token expires within lead time
func (m *Manager) RefreshRequired() bool {
	return m.window.Remaining() <= m.LeadTime()
}

func (m *Manager) Remaining() time.Duration {
	return m.window.Remaining()
}

func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.access
}

func (m *Manager) SetAccessToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.access = token
}

func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refresh
}

func (m *Manager) SetRefreshToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh = token
}

func (m *Manager) LeadTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.leadTime
}

func (m *Manager) SetLeadTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leadTime = d
}

// SetExpiration restarts validity window of access token
func (m *Manager) SetExpiration(validity time.Duration) {
	m.window.Reset(validity)
}
