package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
)

type fakeStore struct {
	pingErr error

	lastQuery    criteria.ObservationQuery
	lastOpts     dataapi.QueryOptions
	lastFootnote criteria.FootnoteQuery
	lastLevel    string
	lastCodes    []string

	observations []dataapi.Observation
	footnotes    []dataapi.Footnote
	err          error
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) FilteredObservations(ctx context.Context, q criteria.ObservationQuery, opts dataapi.QueryOptions) (*dataapi.ObservationResult, error) {
	f.lastQuery, f.lastOpts = q, opts
	if f.err != nil {
		return nil, f.err
	}
	res := &dataapi.ObservationResult{Observations: f.observations}
	if opts.Explain {
		res.ExplainSteps = []string{"SUBJECT 3"}
	}
	return res, nil
}

func (f *fakeStore) FilteredFootnotes(ctx context.Context, q criteria.FootnoteQuery) ([]dataapi.Footnote, error) {
	f.lastFootnote = q
	return f.footnotes, f.err
}

func (f *fakeStore) TableQuery(ctx context.Context, q criteria.ObservationQuery, opts dataapi.QueryOptions) (*dataapi.TableResult, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &dataapi.TableResult{Observations: f.observations, Footnotes: f.footnotes}, nil
}

func (f *fakeStore) Subject(ctx context.Context, id int64) (dataapi.Subject, error) {
	if id != 3 {
		return dataapi.Subject{}, dataapi.New(dataapi.ErrNotFound, "subject not found")
	}
	return dataapi.Subject{ID: 3, Name: "Absence by characteristic", ReleaseID: 1}, nil
}

func (f *fakeStore) SubjectMeta(ctx context.Context, id int64) (*dataapi.SubjectMeta, error) {
	s, err := f.Subject(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dataapi.SubjectMeta{Subject: s}, nil
}

func (f *fakeStore) ReleaseSubjects(ctx context.Context, id int64) ([]dataapi.Subject, error) {
	return nil, f.err
}

func (f *fakeStore) LatestBoundaryLevel(ctx context.Context, level string) (dataapi.BoundaryLevel, error) {
	f.lastLevel = level
	if level != "LocalAuthority" {
		return dataapi.BoundaryLevel{}, dataapi.QueryRejected("geographicLevel", "unknown geographic level")
	}
	return dataapi.BoundaryLevel{ID: 2, Level: criteria.LevelLocalAuthority, Label: "LA 2017"}, nil
}

func (f *fakeStore) Geometries(ctx context.Context, id int64, codes []string) ([]dataapi.Geometry, error) {
	f.lastCodes = codes
	return []dataapi.Geometry{{BoundaryLevelID: id, Code: "E06000001", GeoJSON: json.RawMessage(`{"type":"Polygon"}`)}}, nil
}

func newTestRouter(store *fakeStore) http.Handler {
	return NewRouter(store, Options{Logger: zerolog.Nop()})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	store := &fakeStore{}
	rec, body := do(t, newTestRouter(store), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	store.pingErr = errors.New("database is closed")
	rec, body = do(t, newTestRouter(store), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	newTestRouter(&fakeStore{}).ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestFilterObservations(t *testing.T) {
	store := &fakeStore{observations: []dataapi.Observation{{ID: 1, SubjectID: 3, Measures: map[int64]string{200: "10"}}}}
	rec, body := do(t, newTestRouter(store), http.MethodPost, "/api/v1/observations/filter?explain=true",
		`{"subjectId":"3","filterItemIds":[1000,"1001"],"geographicLevel":"Local Authority"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3), store.lastQuery.SubjectID)
	assert.Equal(t, []int64{1000, 1001}, store.lastQuery.FilterItemIDs)
	assert.True(t, store.lastOpts.Explain)

	observations := body["observations"].([]any)
	require.Len(t, observations, 1)
	assert.Equal(t, map[string]any{"200": "10"}, observations[0].(map[string]any)["measures"])
	assert.Equal(t, []any{"SUBJECT 3"}, body["explainSteps"])
}

func TestFilterObservationsTypeMismatch(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeStore{}), http.MethodPost, "/api/v1/observations/filter",
		`{"subjectId":3,"filterItemIds":[1000,"male"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "type_mismatch", body["kind"])
	assert.Equal(t, "filterItemIds[1]", body["field"])
}

func TestFilterObservationsEmptyBody(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeStore{}), http.MethodPost, "/api/v1/observations/filter", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "type_mismatch", body["kind"])
}

func TestStoreErrorsAreMapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{dataapi.QueryRejected("locationCodes", "location codes require a geographic level"), http.StatusBadRequest, "query_rejected"},
		{dataapi.New(dataapi.ErrNotFound, "subject not found"), http.StatusNotFound, "not_found"},
		{dataapi.Wrap(dataapi.ErrSQL, "filter observations", errors.New("disk I/O error")), http.StatusInternalServerError, "sql"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "io"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			rec, body := do(t, newTestRouter(&fakeStore{err: tc.err}), http.MethodPost, "/api/v1/tablebuilder", `{"subjectId":3}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, body["kind"])
			assert.NotContains(t, body["error"], "disk I/O")
		})
	}
}

func TestFilterFootnotes(t *testing.T) {
	store := &fakeStore{}
	rec, body := do(t, newTestRouter(store), http.MethodPost, "/api/v1/footnotes/filter", `{"subjectIds":[3],"filterItemIds":["1000"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3}, store.lastFootnote.SubjectIDs)
	assert.Equal(t, []int64{1000}, store.lastFootnote.FilterItemIDs)
	assert.Equal(t, []any{}, body["footnotes"])
}

func TestTableBuilder(t *testing.T) {
	store := &fakeStore{
		observations: []dataapi.Observation{{ID: 1}},
		footnotes:    []dataapi.Footnote{{ID: 5, Content: "Provisional"}},
	}
	rec, body := do(t, newTestRouter(store), http.MethodPost, "/api/v1/tablebuilder", `{"subjectId":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["observations"], 1)
	assert.Equal(t, []any{map[string]any{"id": float64(5), "content": "Provisional"}}, body["footnotes"])
}

func TestSubjectRoutes(t *testing.T) {
	h := newTestRouter(&fakeStore{})

	rec, body := do(t, h, http.MethodGet, "/api/v1/subjects/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Absence by characteristic", body["name"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/subjects/3/meta", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "subject")

	rec, body = do(t, h, http.MethodGet, "/api/v1/subjects/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/subjects/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", body["field"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/releases/1/subjects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["subjects"])
}

func TestBoundaryLevelRoutes(t *testing.T) {
	store := &fakeStore{}
	h := newTestRouter(store)

	rec, body := do(t, h, http.MethodGet, "/api/v1/boundary-levels/LocalAuthority", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LA 2017", body["label"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/boundary-levels/Galaxy", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/api/v1/boundary-levels/2/geometries?code=E06000001,E06000002&code=E06000003", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"E06000001", "E06000002", "E06000003"}, store.lastCodes)
	geoms := body["geometries"].([]any)
	require.Len(t, geoms, 1)
	assert.Equal(t, map[string]any{"type": "Polygon"}, geoms[0].(map[string]any)["geoJson"])
}

func TestUnknownRoute(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeStore{}), http.MethodGet, "/api/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])
}
