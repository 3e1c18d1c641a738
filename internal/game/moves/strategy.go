package moves

// Strategy is one link of the resolver's priority chain.
type Strategy interface {
	Name() string
	Resolve(c *Context) Result
}

// specialCaseStrategy delegates to a registered handler. Its result is final.
type specialCaseStrategy struct {
	registry *Registry
}

func (specialCaseStrategy) Name() string { return "special-case" }

func (s specialCaseStrategy) Resolve(c *Context) Result {
	handler, ok := s.registry.Get(c.Space.Name)
	if !ok {
		return Defer()
	}
	res := handler.Handle(c)
	if res.Kind == ResultDefer {
		// A handler that declines behaves like an empty move list; the
		// registry entry still takes precedence over generic logic.
		res = Moves(nil)
	}
	res.Final = true
	return res
}

// successorStrategy walks the space's successor descriptors.
type successorStrategy struct{}

func (successorStrategy) Name() string { return "successors" }

func (successorStrategy) Resolve(c *Context) Result {
	return c.SuccessorMoves()
}

// outcomeStrategy merges the NextStep dice outcome once a roll exists.
type outcomeStrategy struct{}

func (outcomeStrategy) Name() string { return "outcome-table" }

func (outcomeStrategy) Resolve(c *Context) Result {
	if !c.HasRoll() {
		return Defer()
	}
	candidates := c.OutcomeMoves()
	if len(candidates) == 0 {
		return Defer()
	}
	return Moves(candidates)
}
