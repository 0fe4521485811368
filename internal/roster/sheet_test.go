package roster

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func encodeTestWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestDecodeSheet(t *testing.T) {
	buf := encodeTestWorkbook(t, [][]any{
		{"姓名", "年龄", "备注"},
		{"张三", 35, "支部一"},
		{"李四", 41, nil},
	})

	rows, err := DecodeSheet(buf)
	if err != nil {
		t.Fatalf("DecodeSheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if got := rows[0][0].String(); got != "姓名" {
		t.Errorf("header cell = %q", got)
	}
	if rows[1][1].Kind() != CellNumber || rows[1][1].Int() != 35 {
		t.Errorf("numeric cell = %v (%d)", rows[1][1].Kind(), rows[1][1].Int())
	}
	if got := rows[2][0].String(); got != "李四" {
		t.Errorf("text cell = %q", got)
	}
}

func TestDecodeSheetGarbage(t *testing.T) {
	_, err := DecodeSheet(strings.NewReader("this is not a workbook"))
	if !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("DecodeSheet(garbage) = %v, want ErrUnreadableWorkbook", err)
	}
}
