package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/statspub/dataapi/dataapi/criteria"
)

var (
	// ErrReleasePublished is returned for writes under a published release.
	ErrReleasePublished = errors.New("release is published")
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("not found")
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Observation is one observation row with the filter items attached to it.
type Observation struct {
	ID              int64                    `json:"id"`
	SubjectID       int64                    `json:"subjectId"`
	LocationID      int64                    `json:"locationId"`
	SchoolLaestab   string                   `json:"schoolLaestab,omitempty"`
	ProviderUkprn   string                   `json:"providerUkprn,omitempty"`
	Year            int                      `json:"year"`
	TimeIdentifier  criteria.TimeIdentifier  `json:"timeIdentifier"`
	GeographicLevel criteria.GeographicLevel `json:"geographicLevel"`
	Measures        map[int64]string         `json:"measures"`
	FilterItemIDs   []int64                  `json:"filterItemIds"`
}

// ObservationResult holds a filtered observation set in id order.
type ObservationResult struct {
	Observations []Observation `json:"observations"`
	ExplainSQL   string        `json:"explainSql,omitempty"`
	ExplainSteps []string      `json:"explainSteps,omitempty"`
}

type Footnote struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Subject is a subject together with its release.
type Subject struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ReleaseID    int64  `json:"releaseId"`
	ReleaseTitle string `json:"releaseTitle"`
	ReleaseSlug  string `json:"releaseSlug"`
	// PublishedAtMS is zero while the release is a draft.
	PublishedAtMS int64 `json:"publishedAt,omitempty"`
}

func (s Subject) Published() bool { return s.PublishedAtMS > 0 }

type FilterItemMeta struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type FilterGroupMeta struct {
	ID    int64            `json:"id"`
	Label string           `json:"label"`
	Items []FilterItemMeta `json:"items"`
}

type FilterMeta struct {
	ID     int64             `json:"id"`
	Label  string            `json:"label"`
	Name   string            `json:"name"`
	Hint   string            `json:"hint,omitempty"`
	Groups []FilterGroupMeta `json:"groups"`
}

type IndicatorMeta struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	DecimalPlaces *int   `json:"decimalPlaces,omitempty"`
	KeyIndicator  bool   `json:"keyIndicator"`
}

type IndicatorGroupMeta struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	Indicators []IndicatorMeta `json:"indicators"`
}

// SubjectMeta describes everything a subject can be filtered by.
type SubjectMeta struct {
	Subject          Subject                    `json:"subject"`
	Filters          []FilterMeta               `json:"filters"`
	IndicatorGroups  []IndicatorGroupMeta       `json:"indicatorGroups"`
	TimePeriods      []criteria.TimePeriod      `json:"timePeriods"`
	GeographicLevels []criteria.GeographicLevel `json:"geographicLevels"`
}

type BoundaryLevel struct {
	ID            int64                    `json:"id"`
	Level         criteria.GeographicLevel `json:"level"`
	Label         string                   `json:"label"`
	PublishedAtMS int64                    `json:"publishedAt"`
}

type Geometry struct {
	BoundaryLevelID int64  `json:"boundaryLevelId"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	GeoJSON         json.RawMessage `json:"geoJson"`
}
