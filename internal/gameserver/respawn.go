package gameserver

import (
	"sync"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combatant"
)

// respawnEntry represents a single pending respawn.
type respawnEntry struct {
	templateID string
	readyAt    time.Time
}

// Respawner schedules replacement mobs for defeated ones.
// It is safe for concurrent use.
//
// Invariant: entries with zero delay are never queued.
type Respawner struct {
	mu        sync.Mutex
	templates map[string]*combatant.Template
	pending   []respawnEntry
}

// NewRespawner creates a Respawner over templates.
//
// Precondition: templates may be nil (every Schedule becomes a no-op).
// Postcondition: Returns a non-nil Respawner.
func NewRespawner(templates []*combatant.Template) *Respawner {
	r := &Respawner{templates: make(map[string]*combatant.Template, len(templates))}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

// Schedule enqueues a respawn of templateID at now+delay.
// No-op when delay <= 0 or the template is unknown.
//
// Postcondition: entry is added with readyAt = now+delay iff delay > 0.
func (r *Respawner) Schedule(templateID string, now time.Time, delay time.Duration) {
	if delay <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[templateID]; !ok {
		return
	}
	r.pending = append(r.pending, respawnEntry{templateID: templateID, readyAt: now.Add(delay)})
}

// Due drains and returns the templates of every entry whose readyAt <= now,
// in scheduling order.
//
// Postcondition: the returned entries are no longer pending.
func (r *Respawner) Due(now time.Time) []*combatant.Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		ready  []*combatant.Template
		future []respawnEntry
	)
	for _, e := range r.pending {
		if !e.readyAt.After(now) {
			ready = append(ready, r.templates[e.templateID])
		} else {
			future = append(future, e)
		}
	}
	r.pending = future
	return ready
}

// Pending returns the number of scheduled respawns.
func (r *Respawner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
