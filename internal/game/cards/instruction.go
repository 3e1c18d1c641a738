package cards

import (
	"regexp"
	"strconv"
	"strings"
)

// Instruction is a parsed card rule such as "Draw 2" or "Draw 1 if you roll a 4".
type Instruction struct {
	Count int
	// Rolls restricts the instruction to these die values. Empty means unconditional.
	Rolls []int
}

var (
	drawPattern  = regexp.MustCompile(`(?i)^draw\s+(\d+)(?:\s+cards?)?(?:\s+if\s+you\s+roll\s+(.+))?$`)
	digitPattern = regexp.MustCompile(`[1-6]`)
)

// ParseInstruction parses a card instruction. A bare number is read as a draw
// count, which is how dice outcome cells are usually authored. ok is false for
// blank, zero-count and unrecognised text.
func ParseInstruction(s string) (Instruction, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instruction{}, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return Instruction{}, false
		}
		return Instruction{Count: n}, true
	}

	match := drawPattern.FindStringSubmatch(s)
	if match == nil {
		return Instruction{}, false
	}

	count, err := strconv.Atoi(match[1])
	if err != nil || count <= 0 {
		return Instruction{}, false
	}

	instr := Instruction{Count: count}
	if cond := strings.TrimSpace(match[2]); cond != "" {
		seen := make(map[int]bool)
		for _, d := range digitPattern.FindAllString(cond, -1) {
			v, _ := strconv.Atoi(d)
			if !seen[v] {
				seen[v] = true
				instr.Rolls = append(instr.Rolls, v)
			}
		}
		if len(instr.Rolls) == 0 {
			return Instruction{}, false
		}
	}
	return instr, true
}

// Conditional reports whether the instruction depends on a die roll.
func (i Instruction) Conditional() bool {
	return len(i.Rolls) > 0
}

// Applies reports whether the instruction fires for roll. A roll of 0 means no
// roll has been made, so conditional instructions never apply.
func (i Instruction) Applies(roll int) bool {
	if !i.Conditional() {
		return true
	}
	for _, r := range i.Rolls {
		if r == roll {
			return true
		}
	}
	return false
}
