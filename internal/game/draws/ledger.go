package draws

import (
	"sort"
	"sync"

	"github.com/pmquest/pmgame-server/internal/game/cards"
)

// Key identifies one card-draw application: a player's visit to a space
// instance during a given turn.
type Key struct {
	PlayerID    string `json:"player_id"`
	SpaceID     string `json:"space_id"`
	TurnOrdinal int    `json:"turn"`
}

// Entry is what the ledger remembers about a committed key.
type Entry struct {
	Key   Key          `json:"key"`
	Roll  int          `json:"roll,omitempty"`
	Draws []Draw       `json:"draws"`
	Cards []cards.Card `json:"cards"`
}

// Ledger is the single record of committed card draws.
type Ledger struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[Key]Entry)}
}

// Get returns the entry for key.
func (l *Ledger) Get(key Key) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	return e, ok
}

// Record stores e unless its key is already present. It reports whether the
// entry was stored.
func (l *Ledger) Record(e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[e.Key]; exists {
		return false
	}
	l.entries[e.Key] = e
	return true
}

// Len returns the number of committed keys.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Prune forgets entries from turns before beforeTurn and returns how many
// were removed.
func (l *Ledger) Prune(beforeTurn int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k := range l.entries {
		if k.TurnOrdinal < beforeTurn {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Entries returns every entry in (turn, player, space) order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.TurnOrdinal != b.TurnOrdinal {
			return a.TurnOrdinal < b.TurnOrdinal
		}
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		return a.SpaceID < b.SpaceID
	})
	return out
}

// RestoreLedger rebuilds a ledger from persisted entries.
func RestoreLedger(entries []Entry) *Ledger {
	l := NewLedger()
	for _, e := range entries {
		l.entries[e.Key] = e
	}
	return l
}
