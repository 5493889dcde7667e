package dispatch

import (
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"wordwire/internal/ipc"
)

// sendBuffer is each connection's outbound queue depth. A subscriber that
// falls this far behind is dropped rather than allowed to stall a broadcast.
const sendBuffer = 64

// Conn is one websocket connection's registry entry. The writer goroutine
// drains Outbox; everything else goes through Send.
type Conn struct {
	ID        string
	UserID    string
	Username  string
	Anonymous bool
	Rating    int32

	send chan ipc.Envelope

	mu        sync.Mutex
	realms    map[string]bool
	pathRealm string // the realm the client's current path maps to
	lagMS     int32
	closed    bool
}

func (c *Conn) Outbox() <-chan ipc.Envelope { return c.send }

// Send queues an envelope without blocking. It reports false when the
// buffer is full or the connection is gone. The closed check serializes
// against Remove so a concurrent broadcast never hits a closed channel.
func (c *Conn) Send(env ipc.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

func (c *Conn) setLag(ms int32) {
	c.mu.Lock()
	c.lagMS = ms
	c.mu.Unlock()
}

// Registry tracks live connections and their realm subscriptions and fans
// envelopes out to them. It satisfies the Emitter interfaces of the game and
// tournament domains.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Conn
	byUser  map[string]map[string]*Conn
	byRealm map[string]map[string]*Conn
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		conns:   make(map[string]*Conn),
		byUser:  make(map[string]map[string]*Conn),
		byRealm: make(map[string]map[string]*Conn),
		log:     log.Named("registry"),
	}
}

// Add registers a fresh connection for a user and returns it.
func (r *Registry) Add(userID, username string, anonymous bool) *Conn {
	c := &Conn{
		ID:        randID(10),
		UserID:    userID,
		Username:  username,
		Anonymous: anonymous,
		send:      make(chan ipc.Envelope, sendBuffer),
		realms:    make(map[string]bool),
	}
	r.mu.Lock()
	r.conns[c.ID] = c
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Conn)
	}
	r.byUser[userID][c.ID] = c
	r.mu.Unlock()
	return c
}

// Remove drops the connection from every index and closes its outbox.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.ID)
	if userConns := r.byUser[c.UserID]; userConns != nil {
		delete(userConns, c.ID)
		if len(userConns) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	c.mu.Lock()
	for realm := range c.realms {
		r.unsubscribeLocked(c, realm)
	}
	c.realms = make(map[string]bool)
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	r.mu.Unlock()
}

func (r *Registry) Subscribe(c *Conn, realm string) {
	r.mu.Lock()
	if r.byRealm[realm] == nil {
		r.byRealm[realm] = make(map[string]*Conn)
	}
	r.byRealm[realm][c.ID] = c
	r.mu.Unlock()
	c.mu.Lock()
	c.realms[realm] = true
	c.mu.Unlock()
}

func (r *Registry) Unsubscribe(c *Conn, realm string) {
	r.mu.Lock()
	r.unsubscribeLocked(c, realm)
	r.mu.Unlock()
	c.mu.Lock()
	delete(c.realms, realm)
	c.mu.Unlock()
}

func (r *Registry) unsubscribeLocked(c *Conn, realm string) {
	if conns := r.byRealm[realm]; conns != nil {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(r.byRealm, realm)
		}
	}
}

// Realms returns the connection's current subscriptions.
func (r *Registry) Realms(c *Conn) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.realms))
	for realm := range c.realms {
		out = append(out, realm)
	}
	return out
}

// ToConn sends to a single connection without blocking; on overflow the
// envelope is dropped and logged.
func (r *Registry) ToConn(c *Conn, env ipc.Envelope) {
	if !c.Send(env) {
		r.log.Warn("dropping message for slow connection",
			zap.String("connId", c.ID),
			zap.Uint8("type", uint8(env.Type)))
	}
}

// ToUser fans out to every connection the user has open.
func (r *Registry) ToUser(userID string, env ipc.Envelope) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.byUser[userID]))
	for _, c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	for _, c := range conns {
		r.ToConn(c, env)
	}
}

// ToRealm broadcasts to the realm's subscribers. A division realm
// ("tournament.<id>.<division>") also reaches subscribers of its parent
// tournament realm, so one join covers every division.
func (r *Registry) ToRealm(realm string, env ipc.Envelope) {
	targets := map[string]*Conn{}
	r.mu.RLock()
	for id, c := range r.byRealm[realm] {
		targets[id] = c
	}
	if parent, ok := parentRealm(realm); ok {
		for id, c := range r.byRealm[parent] {
			targets[id] = c
		}
	}
	r.mu.RUnlock()
	for _, c := range targets {
		r.ToConn(c, env)
	}
}

func parentRealm(realm string) (string, bool) {
	if !strings.HasPrefix(realm, "tournament.") {
		return "", false
	}
	i := strings.LastIndexByte(realm, '.')
	if i <= len("tournament") {
		return "", false
	}
	return realm[:i], true
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
