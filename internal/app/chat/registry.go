package chat

import "sync"

// Registry tracks every live connection. It owns the connection records,
// keyed by connection ID, and keeps a secondary non-owning index from
// username to that user's connections. A username may have zero, one, or
// several live connections at once; "online" means at least one.
//
// All mutation funnels through the registry's mutex. Read methods return
// snapshots so callers never hold the lock while delivering.
type Registry struct {
	mu sync.RWMutex

	// conns is the owning collection, keyed by connection ID.
	conns map[string]*Client

	// byUser indexes connection IDs per username.
	byUser map[string]map[string]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
	}
}

// add registers a client under its connection ID and username.
func (r *Registry) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.id] = c

	userConns, ok := r.byUser[c.user.Username]
	if !ok {
		userConns = make(map[string]*Client)
		r.byUser[c.user.Username] = userConns
	}
	userConns[c.id] = c
}

// remove deregisters the connection and returns the removed client.
// Idempotent: removing an unknown ID returns nil.
func (r *Registry) remove(connectionID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connectionID]
	if !ok {
		return nil
	}

	delete(r.conns, connectionID)

	if userConns, ok := r.byUser[c.user.Username]; ok {
		delete(userConns, connectionID)
		if len(userConns) == 0 {
			delete(r.byUser, c.user.Username)
		}
	}

	return c
}

// FindByUsername returns every live connection for the username, possibly
// none.
func (r *Registry) FindByUsername(username string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userConns := r.byUser[username]
	if len(userConns) == 0 {
		return nil
	}

	clients := make([]*Client, 0, len(userConns))
	for _, c := range userConns {
		clients = append(clients, c)
	}
	return clients
}

// IsOnline reports whether the username has at least one live connection.
func (r *Registry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[username]) > 0
}

// AllUsernames returns the distinct usernames with a live connection.
func (r *Registry) AllUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	usernames := make([]string, 0, len(r.byUser))
	for username := range r.byUser {
		usernames = append(usernames, username)
	}
	return usernames
}

// Clients returns a snapshot of every live connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		clients = append(clients, c)
	}
	return clients
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
