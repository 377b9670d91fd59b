package criteria

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TimeIdentifier is the period code paired with a year, e.g. "AY" for an
// academic year or "M3" for March.
type TimeIdentifier string

// Category groups identifiers that can appear together in one range.
type Category string

const (
	CategoryAcademicYear         Category = "AcademicYear"
	CategoryCalendarYear         Category = "CalendarYear"
	CategoryFinancialYear        Category = "FinancialYear"
	CategoryTaxYear              Category = "TaxYear"
	CategoryReportingYear        Category = "ReportingYear"
	CategoryAcademicYearQuarter  Category = "AcademicYearQuarter"
	CategoryCalendarYearQuarter  Category = "CalendarYearQuarter"
	CategoryFinancialYearQuarter Category = "FinancialYearQuarter"
	CategoryTaxYearQuarter       Category = "TaxYearQuarter"
	CategoryTerm                 Category = "Term"
	CategoryMonth                Category = "Month"
	CategoryWeek                 Category = "Week"
)

// categoryOrder holds the identifiers of each category in period order.
var categoryOrder = map[Category][]TimeIdentifier{
	CategoryAcademicYear:         {"AY"},
	CategoryCalendarYear:         {"CY"},
	CategoryFinancialYear:        {"FY"},
	CategoryTaxYear:              {"TY"},
	CategoryReportingYear:        {"RY"},
	CategoryAcademicYearQuarter:  {"AYQ1", "AYQ2", "AYQ3", "AYQ4"},
	CategoryCalendarYearQuarter:  {"CYQ1", "CYQ2", "CYQ3", "CYQ4"},
	CategoryFinancialYearQuarter: {"FYQ1", "FYQ2", "FYQ3", "FYQ4"},
	CategoryTaxYearQuarter:       {"TYQ1", "TYQ2", "TYQ3", "TYQ4"},
	CategoryTerm:                 {"T1", "T1T2", "T2", "T3"},
	CategoryMonth:                numbered("M", 12),
	CategoryWeek:                 numbered("W", 52),
}

type identifierPos struct {
	category Category
	index    int
}

var identifiers = func() map[TimeIdentifier]identifierPos {
	m := make(map[TimeIdentifier]identifierPos)
	for cat, ids := range categoryOrder {
		for i, id := range ids {
			m[id] = identifierPos{category: cat, index: i}
		}
	}
	return m
}()

func numbered(prefix string, n int) []TimeIdentifier {
	out := make([]TimeIdentifier, n)
	for i := range out {
		out[i] = TimeIdentifier(prefix + strconv.Itoa(i+1))
	}
	return out
}

// Valid reports whether id is a known identifier.
func (id TimeIdentifier) Valid() bool {
	_, ok := identifiers[id]
	return ok
}

// Category returns the category id belongs to.
func (id TimeIdentifier) Category() Category {
	return identifiers[id].category
}

// TimePeriod is a year paired with an identifier.
type TimePeriod struct {
	Year       int            `json:"year"`
	Identifier TimeIdentifier `json:"code"`
}

// ParseTimePeriod parses the "2016_AY" form.
func ParseTimePeriod(s string) (TimePeriod, error) {
	year, code, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok {
		return TimePeriod{}, invalid("timePeriod", "expected <year>_<code>, got %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return TimePeriod{}, mismatch("timePeriod", fmt.Sprintf("year %q is not a number", year))
	}
	tp := TimePeriod{Year: y, Identifier: TimeIdentifier(strings.ToUpper(code))}
	if err := tp.Validate(); err != nil {
		return TimePeriod{}, err
	}
	return tp, nil
}

func (tp TimePeriod) Validate() error {
	if tp.Year < 1000 || tp.Year > 9999 {
		return invalid("timePeriod", "year %d out of range", tp.Year)
	}
	if !tp.Identifier.Valid() {
		return invalid("timePeriod", "unknown time identifier %q", tp.Identifier)
	}
	return nil
}

func (tp TimePeriod) String() string {
	return fmt.Sprintf("%d_%s", tp.Year, tp.Identifier)
}

// Label renders the period for display, e.g. "2016/17" for an academic
// year or "2016 M3" for a month.
func (tp TimePeriod) Label() string {
	next := (tp.Year + 1) % 100
	switch tp.Identifier.Category() {
	case CategoryAcademicYear, CategoryTaxYear:
		return fmt.Sprintf("%d/%02d", tp.Year, next)
	case CategoryFinancialYear:
		return fmt.Sprintf("%d-%02d", tp.Year, next)
	case CategoryCalendarYear, CategoryReportingYear:
		return strconv.Itoa(tp.Year)
	case CategoryAcademicYearQuarter, CategoryTaxYearQuarter, CategoryTerm:
		return fmt.Sprintf("%d/%02d %s", tp.Year, next, tp.Identifier)
	default:
		return fmt.Sprintf("%d %s", tp.Year, tp.Identifier)
	}
}

func (tp TimePeriod) before(other TimePeriod) bool {
	if tp.Year != other.Year {
		return tp.Year < other.Year
	}
	return identifiers[tp.Identifier].index < identifiers[other.Identifier].index
}

// SortTimePeriods orders periods chronologically. Periods of different
// categories in the same year are ordered by category name.
func SortTimePeriods(tps []TimePeriod) {
	sort.Slice(tps, func(i, j int) bool {
		a, b := tps[i], tps[j]
		if a.Year == b.Year && a.Identifier.Category() != b.Identifier.Category() {
			return a.Identifier.Category() < b.Identifier.Category()
		}
		return a.before(b)
	})
}

// UnmarshalJSON accepts {"year":2016,"code":"AY"} or "2016_AY".
func (tp *TimePeriod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := ParseTimePeriod(s)
		if err != nil {
			return err
		}
		*tp = parsed
		return nil
	}
	var raw struct {
		Year       json.RawMessage `json:"year"`
		Identifier string          `json:"code"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return mismatch("timePeriod", "expected an object or <year>_<code> string")
	}
	var year int
	if err := json.Unmarshal(raw.Year, &year); err != nil {
		return mismatch("timePeriod.year", "expected an integer")
	}
	*tp = TimePeriod{Year: year, Identifier: TimeIdentifier(strings.ToUpper(raw.Identifier))}
	return nil
}

// TimePeriodRange is an inclusive range of periods within one category.
type TimePeriodRange struct {
	Start TimePeriod `json:"start"`
	End   TimePeriod `json:"end"`
}

func (r TimePeriodRange) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return err
	}
	if err := r.End.Validate(); err != nil {
		return err
	}
	if r.Start.Identifier.Category() != r.End.Identifier.Category() {
		return invalid("timePeriod", "start %s and end %s are in different categories", r.Start, r.End)
	}
	if r.End.before(r.Start) {
		return invalid("timePeriod", "end %s is before start %s", r.End, r.Start)
	}
	return nil
}

// Expand lists every period in the range, in order.
func (r TimePeriodRange) Expand() ([]TimePeriod, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	order := categoryOrder[r.Start.Identifier.Category()]
	startIdx := identifiers[r.Start.Identifier].index
	endIdx := identifiers[r.End.Identifier].index

	var out []TimePeriod
	for year := r.Start.Year; year <= r.End.Year; year++ {
		for i, id := range order {
			if year == r.Start.Year && i < startIdx {
				continue
			}
			if year == r.End.Year && i > endIdx {
				break
			}
			out = append(out, TimePeriod{Year: year, Identifier: id})
		}
	}
	return out, nil
}
