package dataapi

import (
	"time"

	"github.com/statspub/dataapi/dataapi/ops"
)

type (
	Observation       = ops.Observation
	ObservationResult = ops.ObservationResult
	Footnote          = ops.Footnote
	Subject           = ops.Subject
	SubjectMeta       = ops.SubjectMeta
	BoundaryLevel     = ops.BoundaryLevel
	Geometry          = ops.Geometry
	Dataset           = ops.Dataset
)

// TableResult is an observation result together with the footnotes that
// apply to it.
type TableResult struct {
	SubjectMeta  *SubjectMeta  `json:"subjectMeta,omitempty"`
	Observations []Observation `json:"observations"`
	Footnotes    []Footnote    `json:"footnotes"`
}

// QueryOptions configures observation queries
type QueryOptions struct {
	Explain bool
	// Timeout bounds the whole call; zero uses the store QueryTimeout.
	Timeout time.Duration
}

// StoreOptions configures store behavior
type StoreOptions struct {
	Now func() time.Time
	// QueryTimeout is applied to queries that do not set their own.
	QueryTimeout time.Duration
}

// DefaultStoreOptions returns sensible defaults
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		Now:          time.Now,
		QueryTimeout: DefaultQueryTimeout,
	}
}
