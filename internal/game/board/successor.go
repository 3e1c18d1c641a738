package board

import (
	"regexp"
	"strings"
)

// SuccessorKind classifies a raw successor descriptor.
type SuccessorKind int

const (
	SuccessorBlank SuccessorKind = iota
	SuccessorSpace
	SuccessorDiceRoll
	SuccessorVisitHistory
	SuccessorNegotiation
	SuccessorExplanatory
)

var successorKindNames = map[SuccessorKind]string{
	SuccessorBlank:        "BLANK",
	SuccessorSpace:        "SPACE",
	SuccessorDiceRoll:     "DICE_ROLL",
	SuccessorVisitHistory: "VISIT_HISTORY",
	SuccessorNegotiation:  "NEGOTIATION",
	SuccessorExplanatory:  "EXPLANATORY",
}

func (k SuccessorKind) String() string {
	if name, ok := successorKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// suffixSeparator splits a space name from trailing explanatory text. Space
// names themselves contain bare dashes, so the separator carries spaces.
const suffixSeparator = " - "

var namePattern = regexp.MustCompile(`^[A-Z0-9]+(?:-[A-Z0-9]+)*$`)

// CleanName strips explanatory text after the " - " separator.
func CleanName(raw string) string {
	name := strings.TrimSpace(raw)
	if idx := strings.Index(name, suffixSeparator); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

// IsSpaceName reports whether s looks like a resolvable space name.
func IsSpaceName(s string) bool {
	return namePattern.MatchString(s)
}

// ClassifySuccessor decides what a raw successor descriptor means. For
// SuccessorSpace the cleaned name is returned as well. A leading space name
// wins over sentinel wording in its explanatory suffix.
func ClassifySuccessor(raw string) (SuccessorKind, string) {
	entry := strings.TrimSpace(raw)
	if entry == "" {
		return SuccessorBlank, ""
	}
	if name := CleanName(entry); IsSpaceName(name) {
		return SuccessorSpace, name
	}

	lower := strings.ToLower(entry)
	switch {
	case strings.Contains(lower, "rolled dice"), strings.Contains(lower, "roll dice"), strings.Contains(lower, "roll the dice"):
		return SuccessorDiceRoll, ""
	case strings.Contains(lower, "visit history"):
		return SuccessorVisitHistory, ""
	case strings.Contains(lower, "negotiat"):
		return SuccessorNegotiation, ""
	}
	return SuccessorExplanatory, ""
}

// RequiresDiceRoll reports whether any successor is the dice-roll sentinel.
func (s *Space) RequiresDiceRoll() bool {
	if s == nil {
		return false
	}
	for _, raw := range s.Successors {
		if kind, _ := ClassifySuccessor(raw); kind == SuccessorDiceRoll {
			return true
		}
	}
	return false
}
