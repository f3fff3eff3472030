package realtime

import (
	"sort"
	"sync"
)

// Registry maps a user to its live connections on this instance, grouped by
// the organization each connection was opened for. Presence is the
// empty/non-empty edge of one (user, organization) set.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[string]map[string]*Client)}
}

// Add reports whether c is the user's first live connection in c.OrgID.
func (r *Registry) Add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	orgs, ok := r.byUser[c.UserID]
	if !ok {
		orgs = make(map[string]map[string]*Client)
		r.byUser[c.UserID] = orgs
	}
	conns, ok := orgs[c.OrgID]
	if !ok {
		conns = make(map[string]*Client)
		orgs[c.OrgID] = conns
	}
	conns[c.ID] = c
	return len(conns) == 1
}

// Remove reports whether c was the user's last live connection in c.OrgID.
// Removing an unknown connection is a no-op.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	orgs, ok := r.byUser[c.UserID]
	if !ok {
		return false
	}
	conns, ok := orgs[c.OrgID]
	if !ok {
		return false
	}
	if _, ok := conns[c.ID]; !ok {
		return false
	}
	delete(conns, c.ID)
	if len(conns) > 0 {
		return false
	}
	delete(orgs, c.OrgID)
	if len(orgs) == 0 {
		delete(r.byUser, c.UserID)
	}
	return true
}

// IsOnline reports a live connection in any organization.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ConnectionCount counts the user's connections across organizations.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conns := range r.byUser[userID] {
		n += len(conns)
	}
	return n
}

// OnlineUsers lists users with a live connection scoped to orgID, sorted.
func (r *Registry) OnlineUsers(orgID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for userID, orgs := range r.byUser {
		if len(orgs[orgID]) > 0 {
			out = append(out, userID)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	for _, orgs := range r.byUser {
		for _, conns := range orgs {
			for _, c := range conns {
				out = append(out, c)
			}
		}
	}
	return out
}
