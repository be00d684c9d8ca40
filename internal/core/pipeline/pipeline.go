package pipeline

import (
	"github.com/ardata-lab/ardata/internal/core/calendar"
)

// Default collection for media aggregations.
const DefaultCollection = "media_records"

// Pipeline names. These are the stable identifiers sheet configs refer to
// and the cache keys are derived from.
const (
	DailyCountsAllWithZeroes  = "DAILY_COUNTS_ALL_WITH_ZEROES"
	DailyCountsCollectionOnly = "DAILY_COUNTS_COLLECTION_ONLY"
	WeeklyCounts              = "WEEKLY_COUNTS"
	BiweeklyCounts            = "BIWEEKLY_COUNTS"
	MonthlyCounts             = "MONTHLY_COUNTS"
	PeriodCounts              = "PERIOD_COUNTS"
)

// Pipeline describes one named aggregation: the SQL that produces its rows,
// the scale of its period key, and whether the result must be zero-filled
// against the calendar before analysis.
//
// Biweekly and grading-period buckets cannot be expressed in SQL alone (they
// depend on the configured calendar), so those pipelines run the daily SQL
// and roll the rows up in Go afterwards.
type Pipeline struct {
	Name            string
	Collection      string
	SQL             string
	KeyColumn       string
	Scale           calendar.Scale
	ZeroFill        bool
	RollupFromDaily bool
}

// Registry is the catalog of supported pipelines. To add a pipeline: define
// its SQL in queries.go and add an entry here — sheet configs referencing it
// validate against this map.
var Registry = map[string]Pipeline{
	DailyCountsAllWithZeroes: {
		Name:       DailyCountsAllWithZeroes,
		Collection: DefaultCollection,
		SQL:        dailyCountsSQL,
		KeyColumn:  "Date",
		Scale:      calendar.ScaleDaily,
		ZeroFill:   true,
	},
	DailyCountsCollectionOnly: {
		Name:       DailyCountsCollectionOnly,
		Collection: DefaultCollection,
		SQL:        dailyCountsCollectionOnlySQL,
		KeyColumn:  "Date",
		Scale:      calendar.ScaleDaily,
		ZeroFill:   true,
	},
	WeeklyCounts: {
		Name:       WeeklyCounts,
		Collection: DefaultCollection,
		SQL:        weeklyCountsSQL,
		KeyColumn:  "Week",
		Scale:      calendar.ScaleWeekly,
		ZeroFill:   true,
	},
	BiweeklyCounts: {
		Name:            BiweeklyCounts,
		Collection:      DefaultCollection,
		SQL:             dailyCountsSQL,
		KeyColumn:       "Biweek",
		Scale:           calendar.ScaleBiweekly,
		ZeroFill:        true,
		RollupFromDaily: true,
	},
	MonthlyCounts: {
		Name:       MonthlyCounts,
		Collection: DefaultCollection,
		SQL:        monthlyCountsSQL,
		KeyColumn:  "Month",
		Scale:      calendar.ScaleMonthly,
		ZeroFill:   true,
	},
	PeriodCounts: {
		Name:            PeriodCounts,
		Collection:      DefaultCollection,
		SQL:             dailyCountsSQL,
		KeyColumn:       "Period",
		Scale:           calendar.ScalePeriod,
		ZeroFill:        true,
		RollupFromDaily: true,
	},
}

// Lookup returns the pipeline with the given name.
func Lookup(name string) (Pipeline, bool) {
	p, ok := Registry[name]
	return p, ok
}

// DefaultLags are the per-scale ACF/PACF lag sets used when a sheet config
// does not override them: one step back, one season back, two seasons back.
var DefaultLags = map[calendar.Scale][]int{
	calendar.ScaleDaily:    {1, 7, 14},
	calendar.ScaleWeekly:   {1, 4, 8},
	calendar.ScaleBiweekly: {1, 2, 4},
	calendar.ScaleMonthly:  {1, 3, 6},
	calendar.ScalePeriod:   {1, 2, 3},
}

// DefaultHorizons are the per-scale forecast horizons.
var DefaultHorizons = map[calendar.Scale]int{
	calendar.ScaleDaily:    14,
	calendar.ScaleWeekly:   6,
	calendar.ScaleBiweekly: 4,
	calendar.ScaleMonthly:  3,
	calendar.ScalePeriod:   2,
}
