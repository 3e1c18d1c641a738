package rules

import "sort"

// UsedInstructions records which (space, instruction) pairs have fired during
// the current visit. The controller checks it before every mutating action
// and clears it once, at turn commit.
type UsedInstructions struct {
	used map[string]struct{}
}

// NewUsedInstructions returns an empty set.
func NewUsedInstructions() *UsedInstructions {
	return &UsedInstructions{used: make(map[string]struct{})}
}

func usedKey(spaceID, instruction string) string {
	return spaceID + "|" + instruction
}

// Has reports whether the pair already fired.
func (u *UsedInstructions) Has(spaceID, instruction string) bool {
	_, ok := u.used[usedKey(spaceID, instruction)]
	return ok
}

// MarkOnce records the pair and reports whether this call was the first.
func (u *UsedInstructions) MarkOnce(spaceID, instruction string) bool {
	key := usedKey(spaceID, instruction)
	if _, ok := u.used[key]; ok {
		return false
	}
	u.used[key] = struct{}{}
	return true
}

// Clear empties the set.
func (u *UsedInstructions) Clear() {
	u.used = make(map[string]struct{})
}

// Len returns the number of recorded pairs.
func (u *UsedInstructions) Len() int {
	return len(u.used)
}

// Keys returns the recorded keys, sorted, for snapshots.
func (u *UsedInstructions) Keys() []string {
	out := make([]string, 0, len(u.used))
	for k := range u.used {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RestoreUsedInstructions rebuilds a set from Keys output.
func RestoreUsedInstructions(keys []string) *UsedInstructions {
	u := NewUsedInstructions()
	for _, k := range keys {
		u.used[k] = struct{}{}
	}
	return u
}
