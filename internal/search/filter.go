package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mpatel-dev/cardvault/internal/models"
)

// Filters are the optional metadata constraints on a search. All present
// filters are ANDed; an empty filter set matches every card.
type Filters struct {
	Player   string   `json:"player,omitempty"`
	Year     string   `json:"year,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	GradeMin *float64 `json:"grade_min,omitempty"`
	GradeMax *float64 `json:"grade_max,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.Player == "" && f.Year == "" && f.Brand == "" && f.GradeMin == nil && f.GradeMax == nil
}

// PSA grades are labels like "PSA 10" or "PSA 9.5". Grade bounds compare
// against the numeric part; NULLIF guards the cast so a label with no
// digits (e.g. "Authentic") becomes NULL and never satisfies a bound.
const gradeNumberSQL = `CAST(NULLIF(REGEXP_REPLACE(psa_grade, '[^0-9.]', '', 'g'), '') AS DOUBLE PRECISION)`

// conditions renders the filters as SQL predicates, appending bind values to
// args. The returned slice is empty for an empty filter set.
func (f Filters) conditions(args *[]any) []string {
	var conds []string

	arg := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}

	if f.Player != "" {
		conds = append(conds, fmt.Sprintf("player ILIKE %s", arg("%"+f.Player+"%")))
	}
	if f.Year != "" {
		conds = append(conds, fmt.Sprintf("year = %s", arg(f.Year)))
	}
	if f.Brand != "" {
		conds = append(conds, fmt.Sprintf("brand ILIKE %s", arg("%"+f.Brand+"%")))
	}
	if f.GradeMin != nil {
		conds = append(conds, fmt.Sprintf("%s >= %s", gradeNumberSQL, arg(*f.GradeMin)))
	}
	if f.GradeMax != nil {
		conds = append(conds, fmt.Sprintf("%s <= %s", gradeNumberSQL, arg(*f.GradeMax)))
	}

	return conds
}

// Matches evaluates the filters client-side against a single card. It is the
// same predicate the SQL builder produces, used by the in-memory store.
func (f Filters) Matches(c models.Card) bool {
	if f.Player != "" && !containsFold(c.Player, f.Player) {
		return false
	}
	if f.Year != "" && (c.Year == nil || *c.Year != f.Year) {
		return false
	}
	if f.Brand != "" && !containsFold(c.Brand, f.Brand) {
		return false
	}

	if f.GradeMin != nil || f.GradeMax != nil {
		if c.PSAGrade == nil {
			return false
		}
		grade, ok := ExtractGrade(*c.PSAGrade)
		if !ok {
			return false
		}
		if f.GradeMin != nil && grade < *f.GradeMin {
			return false
		}
		if f.GradeMax != nil && grade > *f.GradeMax {
			return false
		}
	}

	return true
}

// ExtractGrade pulls the numeric portion out of a grade label by stripping
// everything that is not a digit or decimal point. Returns false when
// nothing numeric remains.
func ExtractGrade(label string) (float64, bool) {
	var sb strings.Builder
	for _, r := range label {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}
	grade, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return 0, false
	}
	return grade, true
}

func containsFold(field *string, substr string) bool {
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), strings.ToLower(substr))
}
