// Package data turns the tabular board files into the typed rows the game
// core consumes. The default board ships embedded in the binary.
package data

import (
	"bytes"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"go.uber.org/zap"
)

//go:embed assets/spaces.csv assets/outcomes.csv assets/cards.yaml
var assets embed.FS

const (
	embeddedSpaces   = "assets/spaces.csv"
	embeddedOutcomes = "assets/outcomes.csv"
	embeddedCards    = "assets/cards.yaml"
)

// Paths points at board files on disk. Empty fields use the embedded copy.
type Paths struct {
	Spaces   string
	Outcomes string
	Cards    string
}

// Dataset is a fully loaded board.
type Dataset struct {
	SpaceRows   []board.SpaceRow
	OutcomeRows []outcomes.Row
	Graph       *board.Graph
	Outcomes    *outcomes.Table
	Catalog     cards.Catalog
}

// Load reads and indexes the board described by paths.
func Load(paths Paths, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	spacesRaw, err := readAsset(paths.Spaces, embeddedSpaces)
	if err != nil {
		return nil, fmt.Errorf("read spaces: %w", err)
	}
	outcomesRaw, err := readAsset(paths.Outcomes, embeddedOutcomes)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	cardsRaw, err := readAsset(paths.Cards, embeddedCards)
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}

	spaceRows, err := ParseSpaces(bytes.NewReader(spacesRaw), logger)
	if err != nil {
		return nil, err
	}
	outcomeRows, err := ParseOutcomes(bytes.NewReader(outcomesRaw), logger)
	if err != nil {
		return nil, err
	}
	catalog, err := cards.ParseCatalog(cardsRaw)
	if err != nil {
		return nil, err
	}

	graph, err := board.NewGraph(spaceRows, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("board data loaded",
		zap.Int("space_records", len(spaceRows)),
		zap.Int("outcome_rows", len(outcomeRows)),
		zap.Int("card_types", len(catalog)),
	)

	return &Dataset{
		SpaceRows:   spaceRows,
		OutcomeRows: outcomeRows,
		Graph:       graph,
		Outcomes:    outcomes.NewTable(outcomeRows, logger),
		Catalog:     catalog,
	}, nil
}

// LoadEmbedded loads the bundled board.
func LoadEmbedded(logger *zap.Logger) (*Dataset, error) {
	return Load(Paths{}, logger)
}

func readAsset(path, embedded string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return assets.ReadFile(embedded)
}

var (
	successorColumn = regexp.MustCompile(`^(?:space|successor|next)_?\d+$`)
	cardColumn      = regexp.MustCompile(`^([wbile])_?cards?$`)
)

// ParseSpaces parses the spaces table. Rows without a name or with an unknown
// visit type are skipped with a warning.
func ParseSpaces(r io.Reader, logger *zap.Logger) ([]board.SpaceRow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	header, records, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("spaces table: %w", err)
	}

	nameCol, ok := header["space_name"]
	if !ok {
		return nil, errors.New("spaces table: missing space_name column")
	}
	visitCol, ok := header["visit_type"]
	if !ok {
		return nil, errors.New("spaces table: missing visit_type column")
	}

	var successorCols []int
	cardCols := make(map[cards.Type]int)
	for _, col := range sortedColumns(header) {
		switch {
		case successorColumn.MatchString(col.name):
			successorCols = append(successorCols, col.index)
		case cardColumn.MatchString(col.name):
			t, _ := cards.ParseType(col.name)
			cardCols[t] = col.index
		}
	}

	rows := make([]board.SpaceRow, 0, len(records))
	for i, record := range records {
		line := i + 2
		name := field(record, nameCol)
		if name == "" {
			logger.Warn("skipping space row without a name", zap.Int("line", line))
			continue
		}
		variant, err := board.ParseVariant(field(record, visitCol))
		if err != nil {
			logger.Warn("skipping space row", zap.Int("line", line), zap.String("space_name", name), zap.Error(err))
			continue
		}

		row := board.SpaceRow{
			Name:               name,
			Variant:            variant,
			Description:        fieldByName(record, header, "description"),
			Fee:                fieldByName(record, header, "fee"),
			Time:               fieldByName(record, header, "time"),
			NegotiationAllowed: parseBool(fieldByName(record, header, "negotiate")),
		}
		for _, col := range successorCols {
			if v := field(record, col); v != "" {
				row.Successors = append(row.Successors, v)
			}
		}
		for t, col := range cardCols {
			if v := field(record, col); v != "" {
				if row.CardRules == nil {
					row.CardRules = make(map[cards.Type]string)
				}
				row.CardRules[t] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseOutcomes parses the dice outcomes table.
func ParseOutcomes(r io.Reader, logger *zap.Logger) ([]outcomes.Row, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	header, records, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("outcomes table: %w", err)
	}

	nameCol, ok := header["space_name"]
	if !ok {
		return nil, errors.New("outcomes table: missing space_name column")
	}
	visitCol, ok := header["visit_type"]
	if !ok {
		return nil, errors.New("outcomes table: missing visit_type column")
	}
	categoryCol, ok := header["die_roll"]
	if !ok {
		if categoryCol, ok = header["category"]; !ok {
			return nil, errors.New("outcomes table: missing die_roll column")
		}
	}
	var rollCols [outcomes.Sides]int
	for roll := 1; roll <= outcomes.Sides; roll++ {
		col, ok := header[strconv.Itoa(roll)]
		if !ok {
			return nil, fmt.Errorf("outcomes table: missing column %d", roll)
		}
		rollCols[roll-1] = col
	}

	rows := make([]outcomes.Row, 0, len(records))
	for i, record := range records {
		line := i + 2
		name := field(record, nameCol)
		if name == "" {
			logger.Warn("skipping outcome row without a name", zap.Int("line", line))
			continue
		}
		variant, err := board.ParseVariant(field(record, visitCol))
		if err != nil {
			logger.Warn("skipping outcome row", zap.Int("line", line), zap.String("space_name", name), zap.Error(err))
			continue
		}
		category, err := outcomes.ParseCategory(field(record, categoryCol))
		if err != nil {
			logger.Warn("skipping outcome row", zap.Int("line", line), zap.String("space_name", name), zap.Error(err))
			continue
		}

		row := outcomes.Row{SpaceName: name, Variant: variant, Category: category}
		for j, col := range rollCols {
			row.Values[j] = field(record, col)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type column struct {
	name  string
	index int
}

func sortedColumns(header map[string]int) []column {
	cols := make([]column, 0, len(header))
	for name, idx := range header {
		cols = append(cols, column{name: name, index: idx})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].index < cols[j].index })
	return cols
}

func readTable(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty table")
	}

	header := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		key := strings.ToLower(normalize(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := header[key]; !dup {
			header[key] = i
		}
	}
	return header, records[1:], nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return normalize(record[idx])
}

func fieldByName(record []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok {
		return ""
	}
	return field(record, idx)
}

var dashReplacer = strings.NewReplacer(
	"\ufeff", "",
	"\u00a0", " ",
	"\u2013", "-",
	"\u2014", "-",
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
)

// normalize fixes the encoding artefacts spreadsheet exports tend to add.
func normalize(s string) string {
	return strings.TrimSpace(dashReplacer.Replace(s))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "x":
		return true
	}
	return false
}
