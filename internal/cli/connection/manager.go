package connection

import "fmt"

// Manager tracks the active server connection.
type Manager struct {
	current *Connection
}

// Connection describes one server endpoint plus credentials.
type Connection struct {
	Name     string
	Server   string
	APIKeyID string
	APIKey   string
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{}
}

// Connect records the connection as current.
func (m *Manager) Connect(conn *Connection) error {
	if conn == nil || conn.Server == "" {
		return fmt.Errorf("server address required")
	}
	m.current = conn
	return nil
}

// Disconnect clears the current connection.
func (m *Manager) Disconnect() {
	m.current = nil
}

// Current returns the current connection, or nil.
func (m *Manager) Current() *Connection {
	return m.current
}

// IsConnected reports whether a connection is active.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}

// Client builds an HTTP client for the current connection.
func (m *Manager) Client() (*HTTPClient, error) {
	if m.current == nil {
		return nil, fmt.Errorf("not connected")
	}
	return NewHTTPClient(m.current.Server, m.current.APIKeyID, m.current.APIKey), nil
}
