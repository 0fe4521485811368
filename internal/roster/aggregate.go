package roster

import (
	"context"
	"log/slog"

	"github.com/kalambet/partystat/internal/storage"
)

// Aggregator rebuilds per-unit summary documents from stored details.
type Aggregator struct {
	store *storage.Store
}

func NewAggregator(store *storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Recompute derives unit's summary from all of its stored detail documents
// and fully replaces the prior summary. The organization roster keeps its
// de-headered rows so tiers can be reclassified at read time; every other
// category keeps only its record count. A category whose document fails to
// load is logged and omitted rather than aborting the rest. Recompute is
// idempotent.
func (a *Aggregator) Recompute(ctx context.Context, unit string) error {
	categories, err := a.store.ListDetailCategories(unit)
	if err != nil {
		return err
	}

	summary := Summary{}
	for _, code := range categories {
		category := Category(code)
		var doc DetailDocument
		found, err := a.store.Read(ctx, a.store.DetailPath(unit, code), &doc)
		if err != nil {
			slog.Warn("skipping unreadable detail document in summary recompute",
				"unit", unit, "category", code, "error", err)
			continue
		}
		if !found {
			continue
		}

		if category == CategoryOrganizations {
			rows := [][]Cell{}
			if len(doc.Rows) > 1 {
				rows = doc.Rows[1:]
			}
			summary[category] = RowsValue(rows)
		} else {
			count := len(doc.Rows) - 1
			if count < 0 {
				count = 0
			}
			summary[category] = CountValue(count)
		}
	}

	return a.store.Write(ctx, a.store.SummaryPath(unit), summary)
}

// LoadSummary reads one unit's summary document. Absent units report found=false.
func (a *Aggregator) LoadSummary(ctx context.Context, unit string) (Summary, bool, error) {
	summary := Summary{}
	found, err := a.store.Read(ctx, a.store.SummaryPath(unit), &summary)
	if err != nil {
		return nil, false, err
	}
	return summary, found, nil
}
