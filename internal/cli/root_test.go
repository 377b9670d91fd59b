package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseYAML = `
themes: [{id: 1, title: Pupils, slug: pupils}]
topics: [{id: 1, themeId: 1, title: Absence, slug: absence}]
publications: [{id: 1, topicId: 1, title: Pupil absence, slug: pupil-absence}]
releases: [{id: 1, publicationId: 1, title: "2016/17", slug: "2016-17"}]
subjects: [{id: 1, releaseId: 1, name: Absence by characteristic}]
locations:
  - id: 1
    codes:
      Country: {code: E92000001, name: England}
      LocalAuthority: {code: E06000001, name: Hartlepool}
filters: [{id: 5, subjectId: 1, label: Gender, name: gender}]
filterGroups: [{id: 7, filterId: 5, label: Default}]
filterItems:
  - {id: 10, filterGroupId: 7, label: Male}
  - {id: 11, filterGroupId: 7, label: Female}
indicatorGroups: [{id: 3, subjectId: 1, label: Absence fields}]
indicators: [{id: 200, indicatorGroupId: 3, label: Overall absence rate, name: sess_overall_percent, unit: "%"}]
observations:
  - {id: 1, subjectId: 1, locationId: 1, year: 2016, timeIdentifier: AY, geographicLevel: LocalAuthority, measures: {200: "4.7"}, filterItemIds: [10]}
  - {id: 2, subjectId: 1, locationId: 1, year: 2016, timeIdentifier: AY, geographicLevel: LocalAuthority, measures: {200: "4.5"}, filterItemIds: [11]}
  - {id: 3, subjectId: 1, locationId: 1, year: 2015, timeIdentifier: AY, geographicLevel: LocalAuthority, measures: {200: "4.9"}, filterItemIds: [10]}
footnotes:
  - {id: 1, content: Provisional figures, subjectIds: [1]}
  - {id: 2, content: Male pupils only, filterItemIds: [10]}
`

type cliEnv struct {
	t  *testing.T
	db string
}

func newCLIEnv(t *testing.T) *cliEnv {
	return &cliEnv{t: t, db: filepath.Join(t.TempDir(), "stats.db")}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(append(args, "--sqlite-path", e.db))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLIEndToEnd(t *testing.T) {
	env := newCLIEnv(t)

	var version struct {
		Version uint `json:"version"`
		Latest  uint `json:"latest"`
		Dirty   bool `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("migrate", "up", "-o", "json")), &version))
	assert.Equal(t, version.Latest, version.Version)
	assert.False(t, version.Dirty)

	out := env.mustRun("import", "--publish", "1", writeFile(t, "release.yaml", releaseYAML))
	assert.Contains(t, out, "Imported 17 rows from 1 files")
	assert.Contains(t, out, "Published release 1")

	var res struct {
		Observations []struct {
			ID       int64            `json:"id"`
			Measures map[string]string `json:"measures"`
		} `json:"observations"`
	}
	out = env.mustRun("query", "observations", "--subject", "1", "--level", "Local authority",
		"--from", "2016_AY", "--items", "10", "-o", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Observations, 1)
	assert.Equal(t, int64(1), res.Observations[0].ID)
	assert.Equal(t, "4.7", res.Observations[0].Measures["200"])

	out = env.mustRun("query", "observations", "--subject", "1", "--items", "10,11", "--explain")
	assert.Contains(t, out, "=== Query Plan ===")
	assert.Contains(t, out, "--- 3 observations ---")

	out = env.mustRun("query", "footnotes", "--subjects", "1", "-o", "yaml")
	assert.Contains(t, out, "content: Provisional figures")
	assert.NotContains(t, out, "Male pupils only")

	out = env.mustRun("query", "table", "--subject", "1", "--from", "2015_AY", "--to", "2016_AY", "--items", "10")
	assert.Contains(t, out, "Absence by characteristic (subject 1, 2016/17)")
	assert.Contains(t, out, "[1] Provisional figures")
	assert.Contains(t, out, "[2] Male pupils only")

	out = env.mustRun("meta", "subject", "1")
	assert.Contains(t, out, "[5] Gender")
	assert.Contains(t, out, "[200] Overall absence rate (%)")
	assert.Contains(t, out, "Geographic levels: LocalAuthority")

	out = env.mustRun("meta", "release", "1")
	assert.Contains(t, out, "[1] Absence by characteristic")
}

func TestCLIQueryFromFile(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("migrate", "up")
	env.mustRun("import", writeFile(t, "release.yaml", releaseYAML))

	query := writeFile(t, "query.json", `{"subjectId": "1", "filterItemIds": ["11"]}`)
	out := env.mustRun("query", "observations", "--file", query)
	assert.Contains(t, out, "#2  2016/17 AY  LocalAuthority  location=1  items=[11]  measures=200:4.5")

	bad := writeFile(t, "bad.json", `{"subjectId": 1, "filterItemIds": [true]}`)
	_, err := env.run("query", "observations", "--file", bad)
	assert.ErrorContains(t, err, "filterItemIds[0]")
}

func TestCLIPublishedReleaseRejectsImport(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("migrate", "up")
	env.mustRun("import", "--publish", "1", writeFile(t, "release.yaml", releaseYAML))

	extra := writeFile(t, "extra.json", `{"observations": [{"id": 9, "subjectId": 1, "locationId": 1, "year": 2017,
		"timeIdentifier": "AY", "geographicLevel": "LocalAuthority", "measures": {"200": "1"}}]}`)
	_, err := env.run("import", extra)
	assert.ErrorContains(t, err, "immutable")
}

func TestCLIMigrateDown(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("migrate", "up")

	_, err := env.run("migrate", "down")
	assert.Error(t, err)

	out := env.mustRun("migrate", "down", "--steps", "2")
	assert.Contains(t, out, "(pending)")

	_, err = env.run("query", "observations", "--subject", "1")
	assert.ErrorContains(t, err, "run migrate up")

	out = env.mustRun("migrate", "down", "--all")
	assert.Contains(t, out, "schema version 0 of")
}
