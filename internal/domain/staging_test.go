package domain

import "testing"

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in     string
		want   Operation
		wantOK bool
	}{
		{"INSERT", OpInsert, true},
		{"update", OpUpdate, true},
		{"  Delete ", OpDelete, true},
		{"nochange", OpNoChange, true},
		{"", "", false},
		{"upsert", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOperation(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseOperation(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPlaceholderKeys(t *testing.T) {
	key := PlaceholderKey(42)
	if key != "(auto:42)" {
		t.Fatalf("PlaceholderKey(42) = %q", key)
	}
	if !IsPlaceholderKey(key) {
		t.Error("IsPlaceholderKey rejected a placeholder")
	}
	if IsPlaceholderKey("1001") {
		t.Error("IsPlaceholderKey accepted a real key")
	}

	line, ok := PlaceholderLine(key)
	if !ok || line != 42 {
		t.Errorf("PlaceholderLine(%q) = (%d, %v)", key, line, ok)
	}
	if _, ok := PlaceholderLine("(auto:x)"); ok {
		t.Error("PlaceholderLine accepted a malformed placeholder")
	}
	if _, ok := PlaceholderLine("1001"); ok {
		t.Error("PlaceholderLine accepted a real key")
	}
}

func TestJobSummaryCount(t *testing.T) {
	var s JobSummary
	s.Count(OpUpdate, true)
	s.Count(OpInsert, true)
	s.Count(OpDelete, false)
	s.Count(OpNoChange, false)

	want := JobSummary{Total: 4, OK: 2, ConErrores: 2, Updates: 1, Inserts: 1, Deletes: 1, NoChange: 1}
	if s != want {
		t.Errorf("summary = %+v, want %+v", s, want)
	}
}
