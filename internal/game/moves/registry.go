package moves

import (
	"sort"
	"sync"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/player"
)

// Handler supplies move logic for a space whose branching cannot be expressed
// with successors and outcome rows. It follows the resolver's contract and
// may return a pending roll.
type Handler interface {
	Handle(c *Context) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(c *Context) Result

// Handle calls f(c).
func (f HandlerFunc) Handle(c *Context) Result {
	return f(c)
}

// OriginCapture is a pending write of a player's original space, taken when
// a move onto a decision space is selected and written at commit.
type OriginCapture struct {
	SpaceName string `json:"space_name"`
	OriginID  string `json:"origin_id"`
}

// ArrivalHook is implemented by handlers that need to remember where a
// player came from.
type ArrivalHook interface {
	CaptureOrigin(p *player.Player, from, to *board.Space) (OriginCapture, bool)
}

// Registry maps space names to special-case handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs h for spaceName, replacing any previous handler.
func (r *Registry) Register(spaceName string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[spaceName] = h
}

// Has reports whether spaceName has a handler.
func (r *Registry) Has(spaceName string) bool {
	_, ok := r.Get(spaceName)
	return ok
}

// Get returns the handler for spaceName.
func (r *Registry) Get(spaceName string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[spaceName]
	return h, ok
}

// Names lists the registered space names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CaptureOrigin asks the destination's handler, if it has an arrival hook,
// whether the move from -> to should record an original space.
func (r *Registry) CaptureOrigin(p *player.Player, from, to *board.Space) (OriginCapture, bool) {
	if p == nil || from == nil || to == nil {
		return OriginCapture{}, false
	}
	h, ok := r.Get(to.Name)
	if !ok {
		return OriginCapture{}, false
	}
	hook, ok := h.(ArrivalHook)
	if !ok {
		return OriginCapture{}, false
	}
	return hook.CaptureOrigin(p, from, to)
}
