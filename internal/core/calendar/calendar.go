package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Period is one bucket on a scale's timeline: a stable key (the zero-fill
// join column value) and the date the bucket starts on.
type Period struct {
	Key   string
	Start time.Time
}

// NamedSpan is a configured grading period inside a school year.
type NamedSpan struct {
	Name  string
	Start time.Time
	End   time.Time
}

// SchoolYear models the reporting calendar: the year's date range, the days
// designated for data collection, and the configured grading periods. It is
// the source of truth for the dense period ranges the zero-fill stage joins
// against, and for the collection-day predicate used by upstream filters.
type SchoolYear struct {
	Start         time.Time
	End           time.Time
	nonCollection map[string]struct{}
	periods       []NamedSpan
}

// Config is the raw calendar configuration as loaded from the config file.
type Config struct {
	YearStart         string   `koanf:"year_start"`
	YearEnd           string   `koanf:"year_end"`
	NonCollectionDays []string `koanf:"non_collection_days"`
	Periods           []Span   `koanf:"periods"`
}

// Span is a raw named date range in the configuration.
type Span struct {
	Name  string `koanf:"name"`
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

// NewSchoolYear builds a SchoolYear from configuration. Weekends are never
// collection days; non_collection_days lists additional holidays and breaks.
func NewSchoolYear(cfg Config) (*SchoolYear, error) {
	start, err := time.Parse(dateLayout, cfg.YearStart)
	if err != nil {
		return nil, fmt.Errorf("calendar year_start: %w", err)
	}
	end, err := time.Parse(dateLayout, cfg.YearEnd)
	if err != nil {
		return nil, fmt.Errorf("calendar year_end: %w", err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("calendar year_end %s must be after year_start %s", cfg.YearEnd, cfg.YearStart)
	}

	sy := &SchoolYear{
		Start:         start,
		End:           end,
		nonCollection: make(map[string]struct{}, len(cfg.NonCollectionDays)),
	}
	for _, d := range cfg.NonCollectionDays {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("calendar non_collection_days entry %q: %w", d, err)
		}
		sy.nonCollection[d] = struct{}{}
	}

	for _, p := range cfg.Periods {
		ps, err := time.Parse(dateLayout, p.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar period %q start: %w", p.Name, err)
		}
		pe, err := time.Parse(dateLayout, p.End)
		if err != nil {
			return nil, fmt.Errorf("calendar period %q end: %w", p.Name, err)
		}
		if pe.Before(ps) {
			return nil, fmt.Errorf("calendar period %q ends before it starts", p.Name)
		}
		sy.periods = append(sy.periods, NamedSpan{Name: p.Name, Start: ps, End: pe})
	}
	return sy, nil
}

// IsCollectionDay reports whether the given date is a valid data-capture day:
// inside the school year, not a weekend, not a configured holiday.
func (sy *SchoolYear) IsCollectionDay(d time.Time) bool {
	d = d.Truncate(24 * time.Hour)
	if d.Before(sy.Start) || d.After(sy.End) {
		return false
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := sy.nonCollection[d.Format(dateLayout)]
	return !holiday
}

// CollectionDays returns every collection day in the year, ascending.
func (sy *SchoolYear) CollectionDays() []time.Time {
	var days []time.Time
	for d := sy.Start; !d.After(sy.End); d = d.AddDate(0, 0, 1) {
		if sy.IsCollectionDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// PeriodRange returns the dense, chronologically ordered list of period keys
// for the given scale. This range is what the zero-fill stage guarantees one
// row per entry for; its ordering is load-bearing for lag semantics.
func (sy *SchoolYear) PeriodRange(scale Scale) ([]Period, error) {
	days := sy.CollectionDays()
	switch scale {
	case ScaleDaily:
		out := make([]Period, len(days))
		for i, d := range days {
			out[i] = Period{Key: d.Format(dateLayout), Start: d}
		}
		return out, nil
	case ScaleWeekly:
		return groupByKey(days, isoWeekKey), nil
	case ScaleBiweekly:
		weeks := groupByKey(days, isoWeekKey)
		out := make([]Period, 0, (len(weeks)+1)/2)
		for i := 0; i < len(weeks); i += 2 {
			out = append(out, Period{
				Key:   fmt.Sprintf("%04d-B%02d", weeks[i].Start.Year(), len(out)+1),
				Start: weeks[i].Start,
			})
		}
		return out, nil
	case ScaleMonthly:
		return groupByKey(days, func(d time.Time) string { return d.Format("2006-01") }), nil
	case ScalePeriod:
		if len(sy.periods) == 0 {
			return nil, fmt.Errorf("scale %q requires configured periods", scale)
		}
		out := make([]Period, len(sy.periods))
		for i, p := range sy.periods {
			out[i] = Period{Key: p.Name, Start: p.Start}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported scale %q", scale)
	}
}

func isoWeekKey(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// groupByKey collapses ascending days into one period per distinct key,
// keeping the first day as the period start.
func groupByKey(days []time.Time, keyFn func(time.Time) string) []Period {
	var out []Period
	last := ""
	for _, d := range days {
		k := keyFn(d)
		if k != last {
			out = append(out, Period{Key: k, Start: d})
			last = k
		}
	}
	return out
}
