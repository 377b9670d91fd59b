package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
)

type Handler struct {
	store   Querier
	timeout time.Duration
}

func NewHandler(store Querier, timeout time.Duration) *Handler {
	return &Handler{store: store, timeout: timeout}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) queryOptions(c *gin.Context) dataapi.QueryOptions {
	explain, _ := strconv.ParseBool(c.Query("explain"))
	return dataapi.QueryOptions{Explain: explain, Timeout: h.timeout}
}

// bindJSON decodes the request body with the criteria decoders so malformed
// ids are reported against their field.
func bindJSON(c *gin.Context, dst any) bool {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, dataapi.Wrap(dataapi.ErrIO, "read request body", err))
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(c, dataapi.TypeMismatch("", "request body is required"))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func (h *Handler) FilterObservations(c *gin.Context) {
	var q criteria.ObservationQuery
	if !bindJSON(c, &q) {
		return
	}
	res, err := h.store.FilteredObservations(c.Request.Context(), q, h.queryOptions(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) FilterFootnotes(c *gin.Context) {
	var q criteria.FootnoteQuery
	if !bindJSON(c, &q) {
		return
	}
	footnotes, err := h.store.FilteredFootnotes(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	if footnotes == nil {
		footnotes = []dataapi.Footnote{}
	}
	c.JSON(http.StatusOK, gin.H{"footnotes": footnotes})
}

func (h *Handler) TableBuilder(c *gin.Context) {
	var q criteria.ObservationQuery
	if !bindJSON(c, &q) {
		return
	}
	table, err := h.store.TableQuery(c.Request.Context(), q, h.queryOptions(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, dataapi.TypeMismatch(name, "expected a positive integer id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) GetSubject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subject, err := h.store.Subject(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

func (h *Handler) GetSubjectMeta(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	meta, err := h.store.SubjectMeta(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) ListReleaseSubjects(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subjects, err := h.store.ReleaseSubjects(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if subjects == nil {
		subjects = []dataapi.Subject{}
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *Handler) LatestBoundaryLevel(c *gin.Context) {
	level, err := h.store.LatestBoundaryLevel(c.Request.Context(), c.Param("level"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}

// ListGeometries accepts codes as repeated or comma separated code params.
func (h *Handler) ListGeometries(c *gin.Context) {
	id, ok := pathID(c, "level")
	if !ok {
		return
	}
	var codes []string
	for _, v := range c.QueryArray("code") {
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	geoms, err := h.store.Geometries(c.Request.Context(), id, codes)
	if err != nil {
		writeError(c, err)
		return
	}
	if geoms == nil {
		geoms = []dataapi.Geometry{}
	}
	c.JSON(http.StatusOK, gin.H{"geometries": geoms})
}
