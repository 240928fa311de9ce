// Package pairing matches entry and exit weighings into transactions.
//
// The ledger stores individual weighing rows; the pair view is derived here.
// Matching walks the rows in chronological order: every exit consumes the most
// recent unmatched entry of the same truck that precedes it, and a row is
// consumed by at most one pair. An operator recording a second exit for the
// same truck therefore produces an independent pair against a later entry, or
// stays unmatched.
package pairing

import (
	"sort"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Build derives all pairs from the given weighings, in entry-time order.
// Unmatched entries appear as incomplete pairs; unmatched exits are dropped.
// The input may arrive in any order.
func Build(weighings []model.Weighing) []model.Pair {
	rows := make([]model.Weighing, len(weighings))
	copy(rows, weighings)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	// open entries per truck, newest last
	open := make(map[string][]int)
	pairs := make([]model.Pair, 0, len(rows)/2)
	matched := make(map[int]int) // entry row index -> pair index

	for i, w := range rows {
		switch w.Kind {
		case model.KindEntry:
			open[w.TruckNumber] = append(open[w.TruckNumber], i)
			pairs = append(pairs, model.Pair{Entry: w})
			matched[i] = len(pairs) - 1
		case model.KindExit:
			stack := open[w.TruckNumber]
			if len(stack) == 0 {
				continue // exit with no preceding entry stays unmatched
			}
			entryIdx := stack[len(stack)-1]
			open[w.TruckNumber] = stack[:len(stack)-1]
			exit := w
			pairs[matched[entryIdx]].Exit = &exit
		}
	}

	return pairs
}

// MatchTruck returns the most recent pair for the given truck, complete or
// not. The second return is false when the truck has no entry weighing at all.
func MatchTruck(weighings []model.Weighing, truckNumber string) (model.Pair, bool) {
	var (
		found model.Pair
		ok    bool
	)
	for _, p := range Build(weighings) {
		if p.Entry.TruckNumber == truckNumber {
			found = p
			ok = true
		}
	}
	return found, ok
}
