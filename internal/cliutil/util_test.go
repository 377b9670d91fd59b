package cliutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatPretty, "JSON": FormatJSON, "yml": FormatYAML} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseOutputFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutputFormat("table"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestToJSONConvertsYAML(t *testing.T) {
	doc := []byte(`
observations:
  - id: 1
    measures:
      200: "10"
`)
	got, err := ToJSON("data.yaml", doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"observations":[{"id":1,"measures":{"200":"10"}}]}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	// stdin without an extension is sniffed
	got, err = ToJSON("", []byte("subjectId: 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"subjectId":3}` {
		t.Fatalf("got %s", got)
	}

	raw := []byte(`{"subjectId": 3}`)
	got, err = ToJSON("-", raw)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("json passthrough changed input: %s, %v", got, err)
	}
}

func TestPrintYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		SubjectID int64 `json:"subjectId"`
	}{3}
	if err := PrintYAML(&buf, v); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "subjectId: 3" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestReadInputFromStdin(t *testing.T) {
	got, err := ReadInput("-", strings.NewReader("hello"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("got %q, %v", got, err)
	}
}
