package roster

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableWorkbook marks an upload that cannot be decoded as a workbook.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// DecodeSheet reads the first worksheet of an xlsx/xls workbook into cell
// rows. The first row is the header. An empty worksheet decodes to no rows.
func DecodeSheet(r io.Reader) ([][]Cell, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no worksheet found", ErrUnreadableWorkbook)
	}

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		cells := make([]Cell, len(r))
		for j, v := range r {
			cells[j] = CellFromValue(v)
		}
		rows[i] = cells
	}
	return rows, nil
}
