package criteria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseID decodes a single id given as a JSON number or numeric string.
func ParseID(field string, raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, mismatch(field, "malformed value")
	}
	return idFromValue(field, v)
}

// ParseIDs decodes a JSON array of ids. Elements may be integers or numeric
// strings; anything else is a type mismatch naming the offending element.
func ParseIDs(field string, raw json.RawMessage) ([]int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var values []any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, mismatch(field, "expected an array of ids")
	}
	out := make([]int64, 0, len(values))
	for i, v := range values {
		id, err := idFromValue(fmt.Sprintf("%s[%d]", field, i), v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseIDStrings parses ids from text, e.g. query string values or CLI
// flags. Each value may itself be a comma separated list.
func ParseIDStrings(field string, values []string) ([]int64, error) {
	var out []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, mismatch(field, fmt.Sprintf("%q is not an integer id", part))
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// ParseCodes decodes a JSON array of string codes.
func ParseCodes(field string, raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, mismatch(field, "expected an array of codes")
	}
	out := make([]string, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(fmt.Sprintf("%s[%d]", field, i), "expected a string code")
		}
		out = append(out, s)
	}
	return out, nil
}

func idFromValue(field string, v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		id, err := x.Int64()
		if err != nil {
			return 0, mismatch(field, fmt.Sprintf("%s is not an integer id", x))
		}
		return id, nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, mismatch(field, fmt.Sprintf("%q is not an integer id", x))
		}
		return id, nil
	default:
		return 0, mismatch(field, fmt.Sprintf("expected an integer id, got %T", v))
	}
}

// uniqueIDs returns ids sorted with duplicates removed.
func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
