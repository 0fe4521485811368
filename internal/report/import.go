package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kalambet/partystat/internal/oplog"
	"github.com/kalambet/partystat/internal/roster"
	"github.com/kalambet/partystat/internal/storage"
)

// ErrBadFormat marks an uploaded report whose header does not match Header.
var ErrBadFormat = errors.New("invalid report format")

const (
	importedFilename = "导入的汇总数据"
	importedRemark   = "导入数据"
	memberPrefix     = "党员"
	applicantPrefix  = "申请人"
)

// Importer replaces the entire store's contents from a consolidated report.
type Importer struct {
	store *storage.Store
	log   *oplog.Log
}

func NewImporter(store *storage.Store, log *oplog.Log) *Importer {
	return &Importer{store: store, log: log}
}

func validateHeader(rows [][]roster.Cell) error {
	if len(rows) < 2 {
		return fmt.Errorf("%w: report needs a header and at least one data row", ErrBadFormat)
	}
	header := rows[0]
	for i, want := range Header {
		var got string
		if i < len(header) {
			got = strings.TrimSpace(header[i].String())
		}
		if got != want {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadFormat, i+1, got, want)
		}
	}
	return nil
}

// Import validates rows against the fixed header, then rebuilds the full
// details/summary state from the aggregate counts and swaps it over the live
// store. Validation failure leaves existing storage untouched; so does any
// failure while the replacement state is still being staged. The round trip
// is lossy: counts survive, per-record detail is synthesized.
//
// The returned record count is the number of rows after the header, the
// totals row included, matching what the export wrote.
func (im *Importer) Import(ctx context.Context, rows [][]roster.Cell, filename, actor string) (int, error) {
	if err := validateHeader(rows); err != nil {
		return 0, err
	}

	staged, err := im.store.Stage()
	if err != nil {
		return 0, err
	}
	// A successful swap removes the staging directory; this covers the
	// abandoned-stage paths.
	defer os.RemoveAll(staged.Root())
	ing := roster.NewIngestor(staged, nil)

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		unit := strings.TrimSpace(row[0].String())
		if unit == totalSentinel {
			continue
		}

		counts := importedCounts(row)
		if err := synthesizeUnit(ctx, ing, unit, counts); err != nil {
			return 0, err
		}
	}

	if err := im.store.SwapStaged(staged); err != nil {
		return 0, err
	}

	recordCount := len(rows) - 1
	if im.log != nil {
		err := im.log.Append(ctx, "import_data", actor, map[string]any{
			"filename":    filename,
			"recordCount": recordCount,
		})
		if err != nil {
			return 0, err
		}
	}
	return recordCount, nil
}

type unitCounts struct {
	members    int
	tiers      roster.TierCounts
	applicants int
}

func importedCounts(row []roster.Cell) unitCounts {
	cell := func(i int) roster.Cell {
		if i < len(row) {
			return row[i]
		}
		return roster.Empty
	}
	return unitCounts{
		members: cell(1).Int(),
		tiers: roster.TierCounts{
			Committee:     cell(2).Int(),
			GeneralBranch: cell(3).Int(),
			Branch:        cell(4).Int(),
		},
		applicants: cell(5).Int(),
	}
}

// synthesizeUnit writes placeholder detail documents reproducing the row's
// aggregate counts. Zero-count categories are omitted entirely.
func synthesizeUnit(ctx context.Context, ing *roster.Ingestor, unit string, counts unitCounts) error {
	if rows := placeholderRoster(memberPrefix, counts.members); rows != nil {
		if _, err := ing.Ingest(ctx, unit, roster.CategoryMembers, importedFilename, "", rows); err != nil {
			return err
		}
	}
	if rows := placeholderOrganizations(counts.tiers); rows != nil {
		if _, err := ing.Ingest(ctx, unit, roster.CategoryOrganizations, importedFilename, "", rows); err != nil {
			return err
		}
	}
	if rows := placeholderRoster(applicantPrefix, counts.applicants); rows != nil {
		if _, err := ing.Ingest(ctx, unit, roster.CategoryApplicants, importedFilename, "", rows); err != nil {
			return err
		}
	}
	return nil
}

func placeholderRoster(prefix string, count int) [][]roster.Cell {
	if count <= 0 {
		return nil
	}
	rows := make([][]roster.Cell, 0, count+1)
	rows = append(rows, []roster.Cell{roster.Text("姓名"), roster.Text("备注")})
	for i := 1; i <= count; i++ {
		rows = append(rows, []roster.Cell{
			roster.Text(fmt.Sprintf("%s%d", prefix, i)),
			roster.Text(importedRemark),
		})
	}
	return rows
}

// placeholderOrganizations emits committee rows first, then general branches,
// then ordinary branches, each tagged with the tier's canonical label in both
// the remark and category columns so reclassification reproduces the counts.
func placeholderOrganizations(tiers roster.TierCounts) [][]roster.Cell {
	total := tiers.Committee + tiers.GeneralBranch + tiers.Branch
	if total <= 0 {
		return nil
	}
	rows := make([][]roster.Cell, 0, total+1)
	rows = append(rows, []roster.Cell{
		roster.Text("组织名称"), roster.Text("组织类型"), roster.Text("备注"), roster.Text("组织类别"),
	})
	emit := func(tier roster.Tier, count int) {
		label := tier.Label()
		for i := 1; i <= count; i++ {
			rows = append(rows, []roster.Cell{
				roster.Text(fmt.Sprintf("%s%d", label, i)),
				roster.Text(label),
				roster.Text(importedRemark),
				roster.Text(label),
			})
		}
	}
	emit(roster.TierCommittee, tiers.Committee)
	emit(roster.TierGeneralBranch, tiers.GeneralBranch)
	emit(roster.TierBranch, tiers.Branch)
	return rows
}
