package criteria

import "testing"

func TestParseGeographicLevel(t *testing.T) {
	cases := map[string]GeographicLevel{
		"LocalAuthority":  LevelLocalAuthority,
		"Local Authority": LevelLocalAuthority,
		"local authority": LevelLocalAuthority,
		"National":        LevelCountry,
		"regional":        LevelRegion,
		"rsc region":      LevelRscRegion,
		"School":          LevelSchool,
		"":                "",
	}
	for in, want := range cases {
		got, err := ParseGeographicLevel(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q want %q", in, got, want)
		}
	}
}

func TestParseGeographicLevelUnknown(t *testing.T) {
	if _, err := ParseGeographicLevel("Galaxy"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLocationColumn(t *testing.T) {
	col, ok := LevelLocalAuthority.LocationColumn()
	if !ok || col != "local_authority" {
		t.Fatalf("unexpected column %q ok=%v", col, ok)
	}
	if _, ok := LevelSchool.LocationColumn(); ok {
		t.Fatalf("school should not map to a location column")
	}
	for _, l := range LocationLevels {
		if _, ok := l.LocationColumn(); !ok {
			t.Fatalf("level %s has no column", l)
		}
	}
}
