// Package querysql resolves caller-supplied sort and table identifiers
// against allow-lists before they reach SQL.
//
// Values are always bound as ? parameters. Identifiers cannot be, so every
// identifier placed into a statement comes from a map literal in this
// module, never from the caller's string.
package querysql

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/aligner/internal/model"
)

// FieldMap maps public sort field names to column expressions.
type FieldMap map[string]string

// SortResolver turns a model.Sort into an ORDER BY term.
type SortResolver struct {
	op       string
	fields   FieldMap
	tiebreak []string
}

// NewSortResolver creates a resolver. tiebreak terms are appended to every
// ORDER BY so results are deterministic regardless of the requested sort.
func NewSortResolver(op string, fields FieldMap, tiebreak ...string) SortResolver {
	return SortResolver{op: op, fields: fields, tiebreak: tiebreak}
}

// Fields lists the accepted field names, sorted.
func (r SortResolver) Fields() []string {
	out := make([]string, 0, len(r.fields))
	for k := range r.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the ORDER BY terms for s. A nil sort yields only the
// tiebreak terms. Unknown fields and directions are rejected.
func (r SortResolver) Resolve(s *model.Sort) ([]string, error) {
	var terms []string
	if s != nil && s.Field != "" {
		column, ok := r.fields[s.Field]
		if !ok {
			return nil, model.NewError(model.ErrCodeQueryInjectionRisk, r.op,
				fmt.Sprintf("unknown sort field %q (allowed: %s)", s.Field, strings.Join(r.Fields(), ", ")), nil)
		}
		dir, err := direction(s.Direction)
		if err != nil {
			return nil, model.NewError(model.ErrCodeQueryInjectionRisk, r.op, err.Error(), nil)
		}
		terms = append(terms, column+" "+dir)
	}
	return append(terms, r.tiebreak...), nil
}

// Apply adds the resolved ORDER BY to b.
func (r SortResolver) Apply(b sq.SelectBuilder, s *model.Sort) (sq.SelectBuilder, error) {
	terms, err := r.Resolve(s)
	if err != nil {
		return b, err
	}
	if len(terms) == 0 {
		return b, nil
	}
	return b.OrderBy(terms...), nil
}

func direction(d model.SortDirection) (string, error) {
	switch strings.ToLower(string(d)) {
	case "", "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	}
	return "", fmt.Errorf("unknown sort direction %q", d)
}

// ParseSort reads "field" or "field:desc" as given on a command line.
// An empty string is no sort.
func ParseSort(s string) *model.Sort {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	field, dir, _ := strings.Cut(s, ":")
	return &model.Sort{Field: field, Direction: model.SortDirection(dir)}
}

// Builder is the statement builder used by the repositories. SQLite takes
// the default ? placeholders.
func Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
