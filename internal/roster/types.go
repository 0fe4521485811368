// Package roster models the categorized membership spreadsheets one
// administrative unit uploads, and derives the unit's summary from them.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Category identifies one spreadsheet type.
type Category int

const (
	CategoryMembers        Category = 1  // 党员花名册
	CategoryOrganizations  Category = 2  // 党组织花名册
	CategoryApplicants     Category = 4  // 入党申请人花名册
	CategoryDeveloped      Category = 5  // 发展党员
	CategoryTransferredIn  Category = 6  // 转入党员
	CategoryTransferredOut Category = 7  // 转出党员
	CategoryDeceased       Category = 10 // 死亡党员
)

// ErrUnknownCategory is returned for category codes outside the closed set.
var ErrUnknownCategory = errors.New("unknown category")

var knownCategories = map[Category]bool{
	CategoryMembers:        true,
	CategoryOrganizations:  true,
	CategoryApplicants:     true,
	CategoryDeveloped:      true,
	CategoryTransferredIn:  true,
	CategoryTransferredOut: true,
	CategoryDeceased:       true,
}

// Known reports whether c is one of the defined spreadsheet types.
func (c Category) Known() bool { return knownCategories[c] }

// ParseCategory parses a decimal category code and validates it.
func ParseCategory(s string) (Category, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	c := Category(n)
	if !c.Known() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCategory, n)
	}
	return c, nil
}

// Summary documents key categories by their decimal code.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(int(c))), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	n, err := strconv.Atoi(string(text))
	if err != nil {
		return fmt.Errorf("parsing category code %q: %w", text, err)
	}
	*c = Category(n)
	return nil
}

// DetailDocument is the raw uploaded data for one (unit, category) pair.
// Rows include the header row; RecordCount excludes it.
type DetailDocument struct {
	Unit        string   `json:"unit"`
	Category    Category `json:"type"`
	Rows        [][]Cell `json:"data"`
	Filename    string   `json:"filename"`
	UploadTime  string   `json:"uploadTime"`
	RecordCount int      `json:"recordCount"`
}

// Summary is one unit's derived aggregate: per category either a record count
// or, for the organization roster, the de-headered rows kept verbatim so tier
// classification can be recomputed on demand. It is a cache over the unit's
// detail documents and is always rebuilt in full.
type Summary map[Category]SummaryValue

// SummaryValue is the per-category summary variant.
type SummaryValue struct {
	count int
	rows  [][]Cell
	kept  bool // rows retained (organization roster)
}

// CountValue returns a plain record-count summary value.
func CountValue(n int) SummaryValue { return SummaryValue{count: n} }

// RowsValue returns a summary value keeping the de-headered rows.
func RowsValue(rows [][]Cell) SummaryValue { return SummaryValue{rows: rows, kept: true} }

// Count returns the record count: the stored count, or for retained rows the
// number of rows kept.
func (v SummaryValue) Count() int {
	if v.kept {
		return len(v.rows)
	}
	return v.count
}

// Rows returns the retained rows, if any.
func (v SummaryValue) Rows() ([][]Cell, bool) { return v.rows, v.kept }

func (v SummaryValue) MarshalJSON() ([]byte, error) {
	if v.kept {
		return json.Marshal(v.rows)
	}
	return []byte(strconv.Itoa(v.count)), nil
}

func (v *SummaryValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var rows [][]Cell
		if err := json.Unmarshal(data, &rows); err != nil {
			return err
		}
		*v = RowsValue(rows)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("parsing summary count: %w", err)
	}
	*v = CountValue(n)
	return nil
}
