package moves

import "fmt"

// DataGapError reports a successor or outcome name that matches no space.
// It is never fatal; the candidate is dropped.
type DataGapError struct {
	Name    string
	SpaceID string
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no space named %q (referenced from %s)", e.Name, e.SpaceID)
}

// InvalidPositionError reports a player standing on an unknown space id.
type InvalidPositionError struct {
	PlayerID string
	Position string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("player %s is on unknown space %q", e.PlayerID, e.Position)
}
