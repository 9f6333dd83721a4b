package store

import _ "embed"

//go:embed catalog.md
var fieldCatalog string

// FieldCatalog describes the meaning, units and encodings of the finance table columns.
func FieldCatalog() string {
	return fieldCatalog
}
