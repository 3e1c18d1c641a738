package rules

import (
	"math/rand"
	"sync"
	"time"
)

// DieSides is the number of faces on the game die.
const DieSides = 6

// Dice produces die rolls in 1..DieSides.
type Dice interface {
	Roll() int
}

// RandomDice is a uniformly random die, safe for concurrent use.
type RandomDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDice seeds a die from the clock.
func NewRandomDice() *RandomDice {
	return NewSeededDice(time.Now().UnixNano())
}

// NewSeededDice returns a deterministic die.
func NewSeededDice(seed int64) *RandomDice {
	return &RandomDice{rng: rand.New(rand.NewSource(seed))}
}

// Roll returns a value in 1..DieSides.
func (d *RandomDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(DieSides) + 1
}

// ValidRoll reports whether v is a face of the die.
func ValidRoll(v int) bool {
	return v >= 1 && v <= DieSides
}

// FixedDice replays a fixed sequence of rolls, cycling when exhausted.
type FixedDice struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

// NewFixedDice returns dice that yield rolls in order.
func NewFixedDice(rolls ...int) *FixedDice {
	return &FixedDice{rolls: rolls}
}

// Roll returns the next value of the sequence, or 1 when it is empty.
func (d *FixedDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return 1
	}
	v := d.rolls[d.next%len(d.rolls)]
	d.next++
	return v
}
