// Package httpapi serves the observation, footnote and metadata queries over
// HTTP/JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
)

// Querier is the part of *dataapi.Store the handlers need.
type Querier interface {
	Ping(ctx context.Context) error
	FilteredObservations(ctx context.Context, q criteria.ObservationQuery, opts dataapi.QueryOptions) (*dataapi.ObservationResult, error)
	FilteredFootnotes(ctx context.Context, q criteria.FootnoteQuery) ([]dataapi.Footnote, error)
	TableQuery(ctx context.Context, q criteria.ObservationQuery, opts dataapi.QueryOptions) (*dataapi.TableResult, error)
	Subject(ctx context.Context, subjectID int64) (dataapi.Subject, error)
	SubjectMeta(ctx context.Context, subjectID int64) (*dataapi.SubjectMeta, error)
	ReleaseSubjects(ctx context.Context, releaseID int64) ([]dataapi.Subject, error)
	LatestBoundaryLevel(ctx context.Context, level string) (dataapi.BoundaryLevel, error)
	Geometries(ctx context.Context, boundaryLevelID int64, codes []string) ([]dataapi.Geometry, error)
}

var _ Querier = (*dataapi.Store)(nil)

type Options struct {
	Logger zerolog.Logger
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit    int
	Burst        int
	QueryTimeout time.Duration
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(q Querier, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(opts.Logger))

	h := NewHandler(q, opts.QueryTimeout)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	if opts.RateLimit > 0 {
		api.Use(RateLimitMiddleware(opts.RateLimit, opts.Burst))
	}
	{
		api.POST("/observations/filter", h.FilterObservations)
		api.POST("/footnotes/filter", h.FilterFootnotes)
		api.POST("/tablebuilder", h.TableBuilder)

		api.GET("/subjects/:id", h.GetSubject)
		api.GET("/subjects/:id/meta", h.GetSubjectMeta)
		api.GET("/releases/:id/subjects", h.ListReleaseSubjects)

		// The segment is a level name for the latest level and a boundary
		// level id for its geometries.
		api.GET("/boundary-levels/:level", h.LatestBoundaryLevel)
		api.GET("/boundary-levels/:level/geometries", h.ListGeometries)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "kind": dataapi.ErrNotFound})
	})
	return r
}
