package sqlite

import "github.com/statspub/dataapi/dataapi/storage"

const subjectColumns = "s.id, s.name, s.release_id, r.title, r.slug, r.published_at"

var SQLTemplates = storage.SQL{
	InsertTheme:       "INSERT INTO themes(id, title, slug) VALUES(?1, ?2, ?3)",
	InsertTopic:       "INSERT INTO topics(id, theme_id, title, slug) VALUES(?1, ?2, ?3, ?4)",
	InsertPublication: "INSERT INTO publications(id, topic_id, title, slug) VALUES(?1, ?2, ?3, ?4)",
	InsertRelease:     "INSERT INTO releases(id, publication_id, title, slug, published_at) VALUES(?1, ?2, ?3, ?4, ?5)",
	InsertSubject:     "INSERT INTO subjects(id, release_id, name) VALUES(?1, ?2, ?3)",
	InsertSchool:      "INSERT INTO schools(laestab, urn, name, academy_type) VALUES(?1, ?2, ?3, ?4) ON CONFLICT(laestab) DO NOTHING",
	InsertProvider:    "INSERT INTO providers(ukprn, urn, name) VALUES(?1, ?2, ?3) ON CONFLICT(ukprn) DO NOTHING",

	InsertFilter:         "INSERT INTO filters(id, subject_id, label, name, hint) VALUES(?1, ?2, ?3, ?4, ?5)",
	InsertFilterGroup:    "INSERT INTO filter_groups(id, filter_id, label) VALUES(?1, ?2, ?3)",
	InsertFilterItem:     "INSERT INTO filter_items(id, filter_group_id, label) VALUES(?1, ?2, ?3)",
	InsertIndicatorGroup: "INSERT INTO indicator_groups(id, subject_id, label) VALUES(?1, ?2, ?3)",
	InsertIndicator:      "INSERT INTO indicators(id, indicator_group_id, label, name, unit, decimal_places, key_indicator) VALUES(?1, ?2, ?3, ?4, ?5, ?6, ?7)",

	InsertObservation: `INSERT INTO observations(id, subject_id, location_id, school_laestab, provider_ukprn, year, time_identifier, geographic_level, measures)
		VALUES(?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9)`,
	InsertObservationFilterItem: "INSERT INTO observation_filter_items(observation_id, filter_item_id) VALUES(?1, ?2)",

	InsertFootnote:            "INSERT INTO footnotes(id, content) VALUES(?1, ?2)",
	InsertSubjectFootnote:     "INSERT INTO subject_footnotes(footnote_id, subject_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",
	InsertIndicatorFootnote:   "INSERT INTO indicator_footnotes(footnote_id, indicator_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",
	InsertFilterFootnote:      "INSERT INTO filter_footnotes(footnote_id, filter_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",
	InsertFilterGroupFootnote: "INSERT INTO filter_group_footnotes(footnote_id, filter_group_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",
	InsertFilterItemFootnote:  "INSERT INTO filter_item_footnotes(footnote_id, filter_item_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",

	InsertBoundaryLevel: "INSERT INTO boundary_levels(id, level, label, published_at) VALUES(?1, ?2, ?3, ?4)",
	InsertGeometry:      "INSERT INTO geometries(boundary_level_id, code, name, geojson) VALUES(?1, ?2, ?3, ?4)",

	GetReleasePublished:      "SELECT published_at FROM releases WHERE id = ?1",
	SetReleasePublished:      "UPDATE releases SET published_at = ?2 WHERE id = ?1",
	GetSubjectRelease:        "SELECT release_id FROM subjects WHERE id = ?1",
	GetFilterSubject:         "SELECT subject_id FROM filters WHERE id = ?1",
	GetFilterGroupSubject:    "SELECT f.subject_id FROM filter_groups fg JOIN filters f ON f.id = fg.filter_id WHERE fg.id = ?1",
	GetFilterItemSubject:     "SELECT f.subject_id FROM filter_items fi JOIN filter_groups fg ON fg.id = fi.filter_group_id JOIN filters f ON f.id = fg.filter_id WHERE fi.id = ?1",
	GetIndicatorGroupSubject: "SELECT subject_id FROM indicator_groups WHERE id = ?1",
	GetIndicatorSubject:      "SELECT ig.subject_id FROM indicators i JOIN indicator_groups ig ON ig.id = i.indicator_group_id WHERE i.id = ?1",

	GetSubject:            "SELECT " + subjectColumns + " FROM subjects s JOIN releases r ON r.id = s.release_id WHERE s.id = ?1",
	ListSubjectsByRelease: "SELECT " + subjectColumns + " FROM subjects s JOIN releases r ON r.id = s.release_id WHERE s.release_id = ?1 ORDER BY s.name, s.id",
	ListFilterTree: `SELECT f.id, f.label, f.name, COALESCE(f.hint, ''), fg.id, fg.label, fi.id, fi.label
		FROM filters f
		LEFT JOIN filter_groups fg ON fg.filter_id = f.id
		LEFT JOIN filter_items fi ON fi.filter_group_id = fg.id
		WHERE f.subject_id = ?1
		ORDER BY f.id, fg.id, fi.id`,
	ListIndicatorTree: `SELECT ig.id, ig.label, i.id, i.label, i.name, i.unit, i.decimal_places, i.key_indicator
		FROM indicator_groups ig
		LEFT JOIN indicators i ON i.indicator_group_id = ig.id
		WHERE ig.subject_id = ?1
		ORDER BY ig.id, i.id`,
	ListSubjectTimePeriods: "SELECT DISTINCT year, time_identifier FROM observations WHERE subject_id = ?1",
	ListSubjectLevels:      "SELECT DISTINCT geographic_level FROM observations WHERE subject_id = ?1 ORDER BY geographic_level",
	GetLatestBoundaryLevel: "SELECT id, level, label, published_at FROM boundary_levels WHERE level = ?1 ORDER BY published_at DESC, id DESC LIMIT 1",
}
