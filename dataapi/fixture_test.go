package dataapi_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/ops"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/postgres"
	"github.com/statspub/dataapi/dataapi/storage/sqlite"
	_ "modernc.org/sqlite"
)

const (
	subjectAbsence = int64(3)
	subjectOther   = int64(4)

	itemMale      = int64(1000)
	itemFemale    = int64(1001)
	itemPrimary   = int64(1100)
	itemSecondary = int64(1101)
	itemIndep     = int64(1110)
	itemOther     = int64(1200)

	groupGender = int64(100)
	groupState  = int64(110)
	groupIndep  = int64(111)

	filterGender     = int64(10)
	filterSchoolType = int64(11)

	indicatorSessions = int64(200)
	indicatorRate     = int64(201)
)

func fixedNow() time.Time { return time.Unix(1700000000, 0) }

// pgDSNEnv, when set, points the integration cases at PostgreSQL instead of
// a temporary SQLite file. Each test gets its own schema.
const pgDSNEnv = "DATAAPI_TEST_PG_DSN"

func testAdapter(t *testing.T) storage.Adapter {
	t.Helper()
	dsn := os.Getenv(pgDSNEnv)
	if dsn == "" {
		return sqlite.New(filepath.Join(t.TempDir(), "dataapi.db"))
	}

	schema := "dataapi_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	adapter := postgres.New(dsn, schema)
	t.Cleanup(func() {
		db, err := adapter.Connect(context.Background())
		if err != nil {
			t.Logf("drop schema %s: %v", schema, err)
			return
		}
		defer db.Close()
		if _, err := db.Exec(`DROP SCHEMA "` + schema + `" CASCADE`); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})
	return adapter
}

func newStore(t *testing.T) *dataapi.Store {
	t.Helper()
	opts := dataapi.DefaultStoreOptions()
	opts.Now = fixedNow
	return newStoreWith(t, opts)
}

func newStoreWith(t *testing.T, opts dataapi.StoreOptions) *dataapi.Store {
	t.Helper()
	st, err := dataapi.Create(context.Background(), testAdapter(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func la(code, name string) map[criteria.GeographicLevel]ops.LocationCode {
	return map[criteria.GeographicLevel]ops.LocationCode{
		criteria.LevelCountry:        {Code: "E92000001", Name: "England"},
		criteria.LevelRegion:         {Code: "E12000001", Name: "North East"},
		criteria.LevelLocalAuthority: {Code: code, Name: name},
	}
}

func obs(id, subject, location int64, year int, level criteria.GeographicLevel, items ...int64) ops.ObservationRow {
	return ops.ObservationRow{
		ID:              id,
		SubjectID:       subject,
		LocationID:      location,
		Year:            year,
		TimeIdentifier:  "AY",
		GeographicLevel: level,
		Measures: map[int64]string{
			indicatorSessions: "1" + string(rune('0'+id)),
			indicatorRate:     "5." + string(rune('0'+id)),
		},
		FilterItemIDs: items,
	}
}

func fixture() dataapi.Dataset {
	places := 1
	return dataapi.Dataset{
		Themes:       []ops.Theme{{ID: 1, Title: "Pupils and schools", Slug: "pupils-and-schools"}},
		Topics:       []ops.Topic{{ID: 1, ThemeID: 1, Title: "Pupil absence", Slug: "pupil-absence"}},
		Publications: []ops.Publication{{ID: 1, TopicID: 1, Title: "Pupil absence in schools in England", Slug: "pupil-absence-in-schools-in-england"}},
		Releases:     []ops.Release{{ID: 1, PublicationID: 1, Title: "2016/17", Slug: "2016-17"}},
		Subjects: []ops.SubjectRow{
			{ID: subjectAbsence, ReleaseID: 1, Name: "Absence by characteristic"},
			{ID: subjectOther, ReleaseID: 1, Name: "Absence in PRUs"},
		},
		Locations: []ops.Location{
			{ID: 1, Codes: map[criteria.GeographicLevel]ops.LocationCode{
				criteria.LevelCountry: {Code: "E92000001", Name: "England"},
			}},
			{ID: 2, Codes: la("E06000001", "Hartlepool")},
			{ID: 3, Codes: la("E06000002", "Middlesbrough")},
		},
		Filters: []ops.Filter{
			{ID: filterGender, SubjectID: subjectAbsence, Label: "Gender", Name: "gender"},
			{ID: filterSchoolType, SubjectID: subjectAbsence, Label: "School type", Name: "school_type", Hint: "Filter by school type"},
			{ID: 12, SubjectID: subjectOther, Label: "Total", Name: "total"},
		},
		FilterGroups: []ops.FilterGroup{
			{ID: groupGender, FilterID: filterGender, Label: "Default"},
			{ID: groupState, FilterID: filterSchoolType, Label: "State-funded"},
			{ID: groupIndep, FilterID: filterSchoolType, Label: "Independent"},
			{ID: 120, FilterID: 12, Label: "Default"},
		},
		FilterItems: []ops.FilterItem{
			{ID: itemMale, FilterGroupID: groupGender, Label: "Male"},
			{ID: itemFemale, FilterGroupID: groupGender, Label: "Female"},
			{ID: itemPrimary, FilterGroupID: groupState, Label: "State-funded primary"},
			{ID: itemSecondary, FilterGroupID: groupState, Label: "State-funded secondary"},
			{ID: itemIndep, FilterGroupID: groupIndep, Label: "Independent"},
			{ID: itemOther, FilterGroupID: 120, Label: "Total"},
		},
		IndicatorGroups: []ops.IndicatorGroup{
			{ID: 20, SubjectID: subjectAbsence, Label: "Absence fields"},
			{ID: 21, SubjectID: subjectOther, Label: "Absence fields"},
		},
		Indicators: []ops.Indicator{
			{ID: indicatorSessions, IndicatorGroupID: 20, Label: "Number of sessions missed", Name: "sess_overall"},
			{ID: indicatorRate, IndicatorGroupID: 20, Label: "Overall absence rate", Name: "sess_overall_percent", Unit: "%", DecimalPlaces: &places, KeyIndicator: true},
			{ID: 210, IndicatorGroupID: 21, Label: "Enrolments", Name: "enrolments"},
		},
		Observations: []ops.ObservationRow{
			obs(1, subjectAbsence, 2, 2016, criteria.LevelLocalAuthority, itemMale, itemPrimary),
			obs(2, subjectAbsence, 2, 2016, criteria.LevelLocalAuthority, itemFemale, itemPrimary),
			obs(3, subjectAbsence, 3, 2016, criteria.LevelLocalAuthority, itemMale, itemSecondary),
			obs(4, subjectAbsence, 3, 2017, criteria.LevelLocalAuthority, itemFemale, itemIndep),
			obs(5, subjectAbsence, 1, 2016, criteria.LevelCountry, itemMale, itemPrimary),
			obs(6, subjectAbsence, 3, 2016, criteria.LevelLocalAuthority),
			obs(7, subjectOther, 2, 2016, criteria.LevelLocalAuthority, itemOther),
		},
		Footnotes: []ops.FootnoteRow{
			{ID: 1, Content: "Applies to the whole subject", SubjectIDs: []int64{subjectAbsence}},
			{ID: 2, Content: "Rates are per session", IndicatorIDs: []int64{indicatorRate}},
			{ID: 3, Content: "Gender as recorded by the school", FilterIDs: []int64{filterGender}},
			{ID: 4, Content: "Excludes special schools", FilterGroupIDs: []int64{groupState}},
			{ID: 5, Content: "Male pupils", FilterItemIDs: []int64{itemMale}, SubjectIDs: []int64{subjectAbsence}},
			{ID: 6, Content: "PRU data is provisional", SubjectIDs: []int64{subjectOther}},
		},
		BoundaryLevels: []ops.BoundaryLevel{
			{ID: 1, Level: criteria.LevelLocalAuthority, Label: "Counties and Unitary Authorities December 2016", PublishedAtMS: 1480550400000},
			{ID: 2, Level: criteria.LevelLocalAuthority, Label: "Counties and Unitary Authorities April 2019", PublishedAtMS: 1554076800000},
		},
		Geometries: []ops.Geometry{
			{BoundaryLevelID: 2, Code: "E06000001", Name: "Hartlepool", GeoJSON: []byte(`{"type":"Polygon","coordinates":[]}`)},
			{BoundaryLevelID: 2, Code: "E06000002", Name: "Middlesbrough", GeoJSON: []byte(`{"type":"Polygon","coordinates":[]}`)},
		},
	}
}

func newLoadedStore(t *testing.T) *dataapi.Store {
	t.Helper()
	st := newStore(t)
	load(t, st)
	return st
}

func load(t *testing.T, st *dataapi.Store) {
	t.Helper()
	b := dataapi.NewBatch()
	b.Add(fixture())
	_, err := st.Apply(context.Background(), b)
	require.NoError(t, err)
}

func observationIDs(res *dataapi.ObservationResult) []int64 {
	out := make([]int64, 0, len(res.Observations))
	for _, o := range res.Observations {
		out = append(out, o.ID)
	}
	return out
}

func footnoteIDs(footnotes []dataapi.Footnote) []int64 {
	out := make([]int64, 0, len(footnotes))
	for _, f := range footnotes {
		out = append(out, f.ID)
	}
	return out
}
