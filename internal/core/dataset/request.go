package dataset

import (
	"sort"
	"strings"
)

// Recognized aggregation filter flags. Flags are part of a request's cache
// identity but their textual order is not.
const (
	FlagCollectionDaysOnly = "collection-days-only"
	FlagExcludeOutliers    = "exclude-outliers"
)

// AggregationRequest identifies one logical dataset: a named pipeline run
// against a collection with a set of filter flags.
type AggregationRequest struct {
	Pipeline   string
	Collection string
	Flags      []string
}

// CacheKey derives the canonical cache identity for the request. Flags are
// deduplicated and sorted so that two requests with the same effective flag
// set map to the same key regardless of flag ordering.
func (r AggregationRequest) CacheKey() string {
	flags := make([]string, 0, len(r.Flags))
	seen := make(map[string]struct{}, len(r.Flags))
	for _, f := range r.Flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		flags = append(flags, f)
	}
	sort.Strings(flags)

	var b strings.Builder
	b.WriteString(r.Pipeline)
	b.WriteByte('|')
	b.WriteString(r.Collection)
	b.WriteByte('|')
	b.WriteString(strings.Join(flags, ","))
	return b.String()
}

// HasFlag reports whether the request carries the given filter flag.
func (r AggregationRequest) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AggregationResult pairs an executed request's canonical identity with its
// rows. Results are produced once per distinct identity per report run and
// are immutable after production: every consumer works on a Clone.
type AggregationResult struct {
	Key   string
	Table *Table
}

// Clone returns an independent deep copy of the result.
func (r *AggregationResult) Clone() *AggregationResult {
	return &AggregationResult{Key: r.Key, Table: r.Table.Clone()}
}
