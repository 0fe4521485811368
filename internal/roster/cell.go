package roster

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CellKind discriminates the spreadsheet cell variant.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one spreadsheet cell value: text, number, or empty. Stored detail
// documents serialize cells as JSON strings, numbers, or null, matching the
// shape the workbook decoder produces.
type Cell struct {
	kind CellKind
	text string
	num  float64
}

// Text returns a text cell.
func Text(s string) Cell { return Cell{kind: CellText, text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{kind: CellNumber, num: f} }

// Empty is the blank cell.
var Empty = Cell{}

// CellFromValue coerces a raw workbook cell string into the variant: blank
// stays empty, numeric-looking text becomes a number, anything else is text.
func CellFromValue(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Empty
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// Kind reports the cell variant.
func (c Cell) Kind() CellKind { return c.kind }

// String coerces the cell to text: numbers are formatted without a trailing
// exponent, empty cells become "".
func (c Cell) String() string {
	switch c.kind {
	case CellText:
		return c.text
	case CellNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Int coerces the cell to an integer count. Text that does not parse as a
// number, and empty cells, coerce to 0.
func (c Cell) Int() int {
	switch c.kind {
	case CellNumber:
		return int(c.num)
	case CellText:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c.text), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.kind == CellEmpty }

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CellText:
		return json.Marshal(c.text)
	case CellNumber:
		return json.Marshal(c.num)
	default:
		return []byte("null"), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*c = Empty
	case float64:
		*c = Number(t)
	case string:
		*c = Text(t)
	case bool:
		// Rare in rosters; keep the workbook's display form.
		if t {
			*c = Text("TRUE")
		} else {
			*c = Text("FALSE")
		}
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		*c = Text(string(raw))
	}
	return nil
}
