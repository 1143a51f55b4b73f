package validation

import (
	"fmt"
	"math/big"

	"github.com/platinummonkey/topgen/pkg/topology"
)

// Interval is the closed address interval claimed by a slave endpoint
type Interval struct {
	Name  string
	Start *big.Int
	End   *big.Int
}

// Overlaps reports whether two closed intervals share at least one address.
// Touching intervals ([0,255] and [255,511]) overlap.
func (i Interval) Overlaps(other Interval) bool {
	return !(i.End.Cmp(other.Start) < 0 || other.End.Cmp(i.Start) < 0)
}

// collectIntervals builds one interval per slave that declares addr_range.
// Slaves without addr_range are skipped; slaves whose bounds cannot be parsed
// produce one error each and are left out of the comparison set.
func collectIntervals(doc *topology.Document) ([]Interval, []string) {
	var (
		intervals []Interval
		errs      []string
	)
	for _, ep := range doc.Slaves() {
		if ep.AddrRange == nil {
			continue
		}
		start, end, err := ep.AddrRange.Bounds()
		if err != nil {
			errs = append(errs, fmt.Sprintf("Endpoint '%s' has invalid 'addr_range': %v", ep.Name, err))
			continue
		}
		intervals = append(intervals, Interval{Name: ep.Name, Start: start, End: end})
	}
	return intervals, errs
}

// findOverlaps compares every unordered pair once, preserving encounter order
// within each returned pair.
func findOverlaps(intervals []Interval) [][2]Interval {
	var pairs [][2]Interval
	for i := range intervals {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Overlaps(intervals[j]) {
				pairs = append(pairs, [2]Interval{intervals[i], intervals[j]})
			}
		}
	}
	return pairs
}
