package roster

import (
	"context"
	"time"

	"github.com/kalambet/partystat/internal/oplog"
	"github.com/kalambet/partystat/internal/storage"
)

// Ingestor persists uploaded detail documents and keeps summaries current.
type Ingestor struct {
	store *storage.Store
	agg   *Aggregator
	log   *oplog.Log // nil disables journaling (staged import)
}

func NewIngestor(store *storage.Store, log *oplog.Log) *Ingestor {
	return &Ingestor{store: store, agg: NewAggregator(store), log: log}
}

// Ingest stores rows as the (unit, category) detail document, overwriting any
// prior upload for that pair, then synchronously recomputes the unit's
// summary before returning. Rows include the header row; the returned record
// count excludes it and is never negative.
func (i *Ingestor) Ingest(ctx context.Context, unit string, category Category, filename, actor string, rows [][]Cell) (int, error) {
	if err := storage.ValidateUnitName(unit); err != nil {
		return 0, err
	}
	if !category.Known() {
		return 0, ErrUnknownCategory
	}

	recordCount := len(rows) - 1
	if recordCount < 0 {
		recordCount = 0
	}

	doc := DetailDocument{
		Unit:        unit,
		Category:    category,
		Rows:        rows,
		Filename:    filename,
		UploadTime:  time.Now().UTC().Format(time.RFC3339),
		RecordCount: recordCount,
	}
	if err := i.store.Write(ctx, i.store.DetailPath(unit, int(category)), doc); err != nil {
		return 0, err
	}

	if err := i.agg.Recompute(ctx, unit); err != nil {
		return 0, err
	}

	if i.log != nil {
		err := i.log.Append(ctx, "upload_data", actor, map[string]any{
			"unit":        unit,
			"type":        category,
			"filename":    filename,
			"recordCount": recordCount,
		})
		if err != nil {
			return 0, err
		}
	}

	return recordCount, nil
}
