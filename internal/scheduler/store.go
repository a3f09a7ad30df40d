package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Store holds every pending reversal keyed by guild, member and kind.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*Action
}

func NewStore() *Store {
	return &Store{entries: make(map[Key]*Action)}
}

func (s *Store) Insert(action *Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[action.Key]; ok && current.State().active() {
		return ErrDuplicateKey
	}
	s.entries[action.Key] = action
	return nil
}

func (s *Store) Get(key Key) (Snapshot, bool) {
	action, ok := s.lookup(key)
	if !ok {
		return Snapshot{}, false
	}
	return action.Snapshot(), true
}

func (s *Store) Remove(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// ListExpiredBefore returns the actions due at or before now, earliest first.
func (s *Store) ListExpiredBefore(now time.Time) []*Action {
	s.mu.RLock()
	due := make([]*Action, 0)
	for _, action := range s.entries {
		if !action.FireAt.After(now) {
			due = append(due, action)
		}
	}
	s.mu.RUnlock()

	sortByFireAt(due)
	return due
}

// List returns the pending actions of one guild, earliest first.
func (s *Store) List(guildID string) []Snapshot {
	s.mu.RLock()
	actions := make([]*Action, 0)
	for key, action := range s.entries {
		if key.GuildID == guildID {
			actions = append(actions, action)
		}
	}
	s.mu.RUnlock()

	sortByFireAt(actions)
	snapshots := make([]Snapshot, 0, len(actions))
	for _, action := range actions {
		snapshots = append(snapshots, action.Snapshot())
	}
	return snapshots
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(key Key) (*Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	action, ok := s.entries[key]
	return action, ok
}

func (s *Store) active(key Key) bool {
	action, ok := s.lookup(key)
	return ok && action.State().active()
}

// removeAction deletes the entry only if it still points at action, so a stale
// firing never evicts a newer action scheduled under the same key.
func (s *Store) removeAction(action *Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[action.Key] != action {
		return false
	}
	delete(s.entries, action.Key)
	return true
}

func (s *Store) all() []*Action {
	s.mu.RLock()
	actions := make([]*Action, 0, len(s.entries))
	for _, action := range s.entries {
		actions = append(actions, action)
	}
	s.mu.RUnlock()
	sortByFireAt(actions)
	return actions
}

func sortByFireAt(actions []*Action) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].FireAt.Equal(actions[j].FireAt) {
			return actions[i].Key.String() < actions[j].Key.String()
		}
		return actions[i].FireAt.Before(actions[j].FireAt)
	})
}
