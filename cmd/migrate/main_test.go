package main

import "testing"

func TestDescriptionFromFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2026-10-17-001-create-migrations.sql", "create migrations"},
		{"2026-10-17-002-create-quickcheck-documents.sql", "create quickcheck documents"},
		{"no-prefix.sql", "no prefix"},
	}
	for _, tt := range tests {
		if got := descriptionFromFilename(tt.in); got != tt.want {
			t.Errorf("descriptionFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
