package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/pmquest/pmgame-server/internal/data"
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"go.uber.org/zap"
)

// Lints a board before it is deployed: successors that name unknown
// spaces, names without a first-visit record, and spaces no path from the
// start can reach.
func main() {
	spaces := flag.String("spaces", "", "spaces CSV (embedded board when empty)")
	outcomeTable := flag.String("outcomes", "", "dice outcomes CSV (embedded board when empty)")
	cardsPath := flag.String("cards", "", "card catalog YAML (embedded board when empty)")
	start := flag.String("start", "OWNER-SCOPE-INITIATION", "name of the start space")
	strict := flag.Bool("strict", false, "exit non-zero when problems are found")
	verbose := flag.Bool("v", false, "log loader warnings")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
	}

	ds, err := data.Load(data.Paths{Spaces: *spaces, Outcomes: *outcomeTable, Cards: *cardsPath}, logger)
	if err != nil {
		log.Fatalf("Failed to load board: %v", err)
	}

	fmt.Println("=== Board Lint ===")
	fmt.Printf("Space records: %d\n", len(ds.SpaceRows))
	fmt.Printf("Outcome rows:  %d\n", len(ds.OutcomeRows))

	problems := 0
	report := func(format string, args ...any) {
		problems++
		fmt.Printf("  - "+format+"\n", args...)
	}

	fmt.Println("\nUnknown successors:")
	for _, s := range ds.Graph.Spaces() {
		for _, raw := range s.Successors {
			kind, name := board.ClassifySuccessor(raw)
			if kind == board.SuccessorSpace && !ds.Graph.HasName(name) {
				report("%s -> %q", s.ID, raw)
			}
		}
	}
	for _, row := range ds.OutcomeRows {
		if row.Category != outcomes.NextStep {
			continue
		}
		for roll := 1; roll <= outcomes.Sides; roll++ {
			for _, name := range nextStepNames(row.Value(roll)) {
				if !ds.Graph.HasName(name) {
					report("%s:%s roll %d -> %q", row.SpaceName, row.Variant, roll, name)
				}
			}
		}
	}

	fmt.Println("\nNames without a first-visit record:")
	for _, name := range ds.Graph.Names() {
		hasFirst := false
		for _, s := range ds.Graph.FindByName(name) {
			if s.Variant == board.VariantFirst {
				hasFirst = true
				break
			}
		}
		if !hasFirst {
			report("%s", name)
		}
	}

	fmt.Println("\nUnreachable from start:")
	if !ds.Graph.HasName(*start) {
		report("start space %q does not exist", *start)
	} else {
		reached := reachable(ds, *start)
		for _, name := range ds.Graph.Names() {
			if !reached[name] {
				report("%s", name)
			}
		}
	}

	fmt.Printf("\n%d problem(s) found\n", problems)
	if *strict && problems > 0 {
		os.Exit(1)
	}
}

// nextStepNames extracts the space names a NEXT_STEP cell points at.
func nextStepNames(value string) []string {
	if outcomes.IsNoEffect(value) {
		return nil
	}
	var names []string
	for _, alt := range outcomes.SplitAlternatives(value) {
		if name := board.CleanName(alt); board.IsSpaceName(name) {
			names = append(names, name)
		}
	}
	return names
}

// reachable walks successors and dice destinations from start by name.
func reachable(ds *data.Dataset, start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		var next []string
		for _, s := range ds.Graph.FindByName(name) {
			for _, raw := range s.Successors {
				if kind, target := board.ClassifySuccessor(raw); kind == board.SuccessorSpace {
					next = append(next, target)
				}
			}
			for _, row := range ds.Outcomes.Rows(name, s.Variant) {
				if row.Category != outcomes.NextStep {
					continue
				}
				for roll := 1; roll <= outcomes.Sides; roll++ {
					next = append(next, nextStepNames(row.Value(roll))...)
				}
			}
		}
		sort.Strings(next)
		for _, n := range next {
			if !seen[n] && ds.Graph.HasName(n) {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}
