package sqlstore

import (
	"log"
	"sort"
)

// FitToSchema aligns an incoming batch's columns with the live table's
// columns. Batch columns absent from the table are dropped with a warning;
// table columns absent from the batch are added to every row as nulls with
// an informational note. No row is ever dropped and the call never fails:
// fitting is best-effort alignment, not validation.
//
// liveColumns is ground truth and must come from a fresh schema probe; the
// batch's own shape is never trusted to describe the table.
func FitToSchema(rows []map[string]any, liveColumns []string) []map[string]any {
	live := make(map[string]struct{}, len(liveColumns))
	for _, c := range liveColumns {
		live[c] = struct{}{}
	}

	batchCols := map[string]struct{}{}
	for _, row := range rows {
		for c := range row {
			batchCols[c] = struct{}{}
		}
	}

	var drop, missing []string
	for c := range batchCols {
		if _, ok := live[c]; !ok {
			drop = append(drop, c)
		}
	}
	for _, c := range liveColumns {
		if _, ok := batchCols[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(drop)
	sort.Strings(missing)

	if len(drop) > 0 {
		log.Printf("fitter: dropping columns not in the table's schema: %v", drop)
	}
	if len(missing) > 0 {
		log.Printf("fitter: adding null-filled columns to match the table's schema: %v", missing)
	}

	for _, row := range rows {
		for _, c := range drop {
			delete(row, c)
		}
		for _, c := range missing {
			row[c] = nil
		}
	}
	return rows
}
