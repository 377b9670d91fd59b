package criteria

import (
	"encoding/json"
	"testing"
)

func TestParseTimePeriod(t *testing.T) {
	tp, err := ParseTimePeriod("2016_ay")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if tp.Year != 2016 || tp.Identifier != "AY" {
		t.Fatalf("unexpected period: %+v", tp)
	}
	if tp.String() != "2016_AY" {
		t.Fatalf("unexpected string form: %s", tp.String())
	}
	if tp.Label() != "2016/17" {
		t.Fatalf("unexpected label: %s", tp.Label())
	}
}

func TestParseTimePeriodRejects(t *testing.T) {
	for _, s := range []string{"2016", "20x6_AY", "2016_ZZ", "99_AY"} {
		if _, err := ParseTimePeriod(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestExpandSingleYear(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2016, Identifier: "AY"},
		End:   TimePeriod{Year: 2016, Identifier: "AY"},
	}
	got, err := r.Expand()
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 1 || got[0] != r.Start {
		t.Fatalf("unexpected periods: %v", got)
	}
}

func TestExpandAcrossYears(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2015, Identifier: "AY"},
		End:   TimePeriod{Year: 2018, Identifier: "AY"},
	}
	got, err := r.Expand()
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 4 || got[0].Year != 2015 || got[3].Year != 2018 {
		t.Fatalf("unexpected periods: %v", got)
	}
}

func TestExpandQuartersWrapYear(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2016, Identifier: "CYQ3"},
		End:   TimePeriod{Year: 2017, Identifier: "CYQ2"},
	}
	got, err := r.Expand()
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2016_CYQ3", "2016_CYQ4", "2017_CYQ1", "2017_CYQ2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d periods, got %v", len(want), got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("period %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestExpandTermsOrder(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2019, Identifier: "T1"},
		End:   TimePeriod{Year: 2019, Identifier: "T2"},
	}
	got, err := r.Expand()
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 3 || got[1].Identifier != "T1T2" {
		t.Fatalf("unexpected terms: %v", got)
	}
}

func TestExpandRejectsMixedCategories(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2016, Identifier: "AY"},
		End:   TimePeriod{Year: 2017, Identifier: "CY"},
	}
	if _, err := r.Expand(); err == nil {
		t.Fatalf("expected category mismatch error")
	}
}

func TestExpandRejectsReversedRange(t *testing.T) {
	r := TimePeriodRange{
		Start: TimePeriod{Year: 2017, Identifier: "M2"},
		End:   TimePeriod{Year: 2017, Identifier: "M1"},
	}
	if _, err := r.Expand(); err == nil {
		t.Fatalf("expected reversed range error")
	}
}

func TestTimePeriodUnmarshalForms(t *testing.T) {
	var r TimePeriodRange
	if err := json.Unmarshal([]byte(`{"start":"2016_AY","end":{"year":2017,"code":"ay"}}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Start.Year != 2016 || r.End.Year != 2017 || r.End.Identifier != "AY" {
		t.Fatalf("unexpected range: %+v", r)
	}

	err := json.Unmarshal([]byte(`{"start":{"year":"2016","code":"AY"},"end":"2017_AY"}`), &r)
	ce, ok := err.(*Error)
	if !ok || !ce.TypeMismatch {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}
