package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Session binds a pair of tokens to an authenticated private ID.
type Session struct {
	PrivateID   string `json:"privateID"`
	ServerToken string `json:"server_token"`
	UserToken   string `json:"user_token"`
}

// SessionStore resolves the tokens of an envelope to a private ID.
type SessionStore interface {
	Lookup(serverToken, userToken string) (string, bool)
}

type sessionKey struct {
	server, user string
}

// MemorySessions is an in-process SessionStore.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[sessionKey]string
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[sessionKey]string)}
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Open starts a session for privateID with fresh tokens.
func (m *MemorySessions) Open(privateID string) (Session, error) {
	st, err := randomToken()
	if err != nil {
		return Session{}, err
	}
	ut, err := randomToken()
	if err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	m.sessions[sessionKey{st, ut}] = privateID
	m.mu.Unlock()
	return Session{PrivateID: privateID, ServerToken: st, UserToken: ut}, nil
}

// Close ends a session.
func (m *MemorySessions) Close(s Session) {
	m.mu.Lock()
	delete(m.sessions, sessionKey{s.ServerToken, s.UserToken})
	m.mu.Unlock()
}

func (m *MemorySessions) Lookup(serverToken, userToken string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pid, ok := m.sessions[sessionKey{serverToken, userToken}]
	return pid, ok
}
