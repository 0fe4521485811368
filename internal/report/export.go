// Package report builds and consumes the consolidated ten-column statistics
// workbook covering every unit.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kalambet/partystat/internal/roster"
	"github.com/kalambet/partystat/internal/storage"
)

// Header is the fixed, order-sensitive column set of the consolidated report.
var Header = []string{
	"单位", "党员人数", "党委数", "党总支数", "党支部数",
	"入党申请人数", "发展党员数", "转入党员数", "转出党员数", "死亡党员数",
}

const (
	sheetName     = "汇总统计"
	totalSentinel = "总计"
)

// Filename returns the date-stamped attachment name for an export.
func Filename(now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", sheetName, now.Format("2006-01-02"))
}

// Exporter renders every stored summary into the consolidated workbook.
type Exporter struct {
	store *storage.Store
	agg   *roster.Aggregator
}

func NewExporter(store *storage.Store) *Exporter {
	return &Exporter{store: store, agg: roster.NewAggregator(store)}
}

// numericColumns reads the nine numeric report columns out of one summary.
func numericColumns(summary roster.Summary) [9]int {
	tiers := roster.TierCounts{}
	if rows, kept := summary[roster.CategoryOrganizations].Rows(); kept {
		tiers = roster.CountTiers(rows)
	}
	return [9]int{
		summary[roster.CategoryMembers].Count(),
		tiers.Committee,
		tiers.GeneralBranch,
		tiers.Branch,
		summary[roster.CategoryApplicants].Count(),
		summary[roster.CategoryDeveloped].Count(),
		summary[roster.CategoryTransferredIn].Count(),
		summary[roster.CategoryTransferredOut].Count(),
		summary[roster.CategoryDeceased].Count(),
	}
}

// Export builds the workbook: one row per unit sorted by name, a running
// total per numeric column, and a final 总计 row. It returns the encoded
// workbook and the number of unit rows.
func (e *Exporter) Export(ctx context.Context) ([]byte, int, error) {
	units, err := e.store.ListSummaryUnits()
	if err != nil {
		return nil, 0, err
	}

	table := make([][]any, 0, len(units)+2)
	headerRow := make([]any, len(Header))
	for i, h := range Header {
		headerRow[i] = h
	}
	table = append(table, headerRow)

	var totals [9]int
	for _, unit := range units {
		summary, found, err := e.agg.LoadSummary(ctx, unit)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			continue
		}

		columns := numericColumns(summary)
		row := make([]any, 0, len(Header))
		row = append(row, unit)
		for i, v := range columns {
			row = append(row, v)
			totals[i] += v
		}
		table = append(table, row)
	}

	totalRow := make([]any, 0, len(Header))
	totalRow = append(totalRow, totalSentinel)
	for _, v := range totals {
		totalRow = append(totalRow, v)
	}
	table = append(table, totalRow)

	data, err := encodeWorkbook(table)
	if err != nil {
		return nil, 0, err
	}
	return data, len(table) - 2, nil
}

func encodeWorkbook(table [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming worksheet: %w", err)
	}
	for i := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &table[i]); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}
