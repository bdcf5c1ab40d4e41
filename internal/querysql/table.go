package querysql

import (
	"fmt"

	"github.com/roach88/aligner/internal/model"
)

// Tables that may be addressed by name through the generic table
// operations. Link and preference tables have dedicated handling and are
// not listed.
var genericTables = map[string]string{
	"corpora":         "corpora",
	"language":        "language",
	"words_or_parts":  "words_or_parts",
	"journal_entries": "journal_entries",
}

// Table returns the table identifier for name, or a QueryInjectionRisk
// error when name is not an allowed table.
func Table(name string) (string, error) {
	t, ok := genericTables[name]
	if !ok {
		return "", model.NewError(model.ErrCodeQueryInjectionRisk, "querysql.table",
			fmt.Sprintf("table %q is not addressable", name), nil)
	}
	return t, nil
}

// IDColumn is the primary key column used for id lookups on a generic
// table.
func IDColumn(table string) string {
	if table == "language" {
		return "code"
	}
	return "id"
}
