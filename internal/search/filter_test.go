package search

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mpatel-dev/cardvault/internal/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestExtractGrade(t *testing.T) {
	tests := []struct {
		label  string
		want   float64
		wantOK bool
	}{
		{"PSA 10", 10, true},
		{"PSA 9.5", 9.5, true},
		{"PSA 9.0", 9, true},
		{"8", 8, true},
		{"Gem Mint", 0, false},
		{"", 0, false},
		{"Authentic", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ExtractGrade(tt.label)
			if ok != tt.wantOK {
				t.Fatalf("ExtractGrade(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractGrade(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestFilters_Matches_Grades(t *testing.T) {
	card := func(grade *string) models.Card {
		return models.Card{ID: uuid.New(), PSAGrade: grade, ImageURL: "https://img.example/c.jpg"}
	}

	gradeMin9 := Filters{GradeMin: floatPtr(9)}

	if gradeMin9.Matches(card(strPtr("PSA 8.5"))) {
		t.Error("PSA 8.5 should not satisfy gradeMin=9")
	}
	if !gradeMin9.Matches(card(strPtr("PSA 9.0"))) {
		t.Error("PSA 9.0 should satisfy gradeMin=9")
	}
	if gradeMin9.Matches(card(strPtr("Gem Mint"))) {
		t.Error("label with no number should never satisfy a grade bound")
	}
	if gradeMin9.Matches(card(nil)) {
		t.Error("nil grade should never satisfy a grade bound")
	}

	gradeMax9 := Filters{GradeMax: floatPtr(9)}
	if gradeMax9.Matches(card(strPtr("Gem Mint"))) {
		t.Error("label with no number should never satisfy gradeMax either")
	}
	if !gradeMax9.Matches(card(strPtr("PSA 7"))) {
		t.Error("PSA 7 should satisfy gradeMax=9")
	}
}

func TestFilters_Matches_Metadata(t *testing.T) {
	c := models.Card{
		ID:       uuid.New(),
		Player:   strPtr("Michael Jordan"),
		Year:     strPtr("1986"),
		Brand:    strPtr("Fleer"),
		ImageURL: "https://img.example/mj.jpg",
	}

	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{"empty matches all", Filters{}, true},
		{"player substring case-insensitive", Filters{Player: "jordan"}, true},
		{"player no match", Filters{Player: "Bryant"}, false},
		{"year exact", Filters{Year: "1986"}, true},
		{"year partial is not a match", Filters{Year: "198"}, false},
		{"brand substring case-insensitive", Filters{Brand: "fLeEr"}, true},
		{"all present ANDed", Filters{Player: "Jordan", Year: "1986", Brand: "Fleer"}, true},
		{"one failing filter fails the conjunction", Filters{Player: "Jordan", Year: "1987"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.Matches(c); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilters_Matches_NilFields(t *testing.T) {
	blank := models.Card{ID: uuid.New(), ImageURL: "https://img.example/x.jpg", CreatedAt: time.Now()}

	if (Filters{Player: "Jordan"}).Matches(blank) {
		t.Error("nil player should not match a player filter")
	}
	if (Filters{Year: "1986"}).Matches(blank) {
		t.Error("nil year should not match a year filter")
	}
	if !(Filters{}).Matches(blank) {
		t.Error("empty filter set must match every card")
	}
}

func TestFilters_Conditions(t *testing.T) {
	var args []any
	conds := Filters{
		Player:   "Jordan",
		Year:     "1986",
		Brand:    "Fleer",
		GradeMin: floatPtr(8),
		GradeMax: floatPtr(10),
	}.conditions(&args)

	if len(conds) != 5 {
		t.Fatalf("got %d conditions, want 5", len(conds))
	}
	if len(args) != 5 {
		t.Fatalf("got %d args, want 5", len(args))
	}

	joined := strings.Join(conds, " AND ")
	if !strings.Contains(joined, "player ILIKE $1") {
		t.Errorf("missing player condition in %q", joined)
	}
	if args[0] != "%Jordan%" {
		t.Errorf("player arg = %v, want %%Jordan%%", args[0])
	}
	if !strings.Contains(joined, "year = $2") {
		t.Errorf("missing year condition in %q", joined)
	}
	if !strings.Contains(joined, "REGEXP_REPLACE") {
		t.Errorf("grade conditions should extract the numeric part, got %q", joined)
	}

	var none []any
	if conds := (Filters{}).conditions(&none); len(conds) != 0 {
		t.Errorf("empty filters produced %d conditions", len(conds))
	}
}

func TestFilters_Conditions_PlaceholderOffset(t *testing.T) {
	// The ranked query binds vector params before the filter params; the
	// builder must continue numbering from the existing args.
	args := []any{"vec1", "vec2"}
	conds := Filters{Player: "Jordan"}.conditions(&args)

	if len(conds) != 1 || !strings.Contains(conds[0], "$3") {
		t.Errorf("expected placeholder $3, got %v", conds)
	}
}
