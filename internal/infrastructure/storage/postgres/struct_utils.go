package postgres

import (
	"reflect"
)

// ExtractDBColumns extracts column names from struct "db" tags, in field
// declaration order. Embedded structs are flattened recursively. Called
// once at package init, so reflection cost does not matter.
//
// Usage:
//
//	columns := ExtractDBColumns[entity.InventoryMovement]()
//	// Returns: ["id", "company_id", "account_id", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	return extractColumnsFromType(t)
}

func extractColumnsFromType(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			cols = append(cols, extractColumnsFromType(field.Type)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}

	return cols
}
