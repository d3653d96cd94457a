// Package coerce implements the Value Coercer (spec.md §4.3): mapping a
// textual cell value plus a declared column type to a correctly-typed bound
// parameter, with no I/O of its own.
package coerce

import (
	"strconv"
	"strings"
	"time"

	"dbexport/internal/dberrors"
	"dbexport/internal/model"
)

// Bound is the result of coercing one textual value against one column's
// declared type: either a typed Go value ready to bind to a prepared
// statement parameter, or a NULL marker carrying the dialect's null type
// code for that column.
type Bound struct {
	Value        any
	IsNull       bool
	NullTypeCode string
}

// Coerce classifies raw against meta.TypeName per spec.md §4.3's type
// table and returns the value to bind. It performs no I/O and never
// mutates meta.
func Coerce(raw string, meta model.ColumnMetadata) (Bound, error) {
	if isNullLiteral(raw) {
		return Bound{IsNull: true, NullTypeCode: nullTypeCodeFor(meta)}, nil
	}

	switch family := typeFamily(meta.TypeName); family {
	case familyBoolean:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Bound{}, dberrors.ForColumn(dberrors.CoercionError, "", meta.Name, "not a boolean: "+raw, err)
		}
		return Bound{Value: v}, nil

	case familyInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Bound{}, dberrors.ForColumn(dberrors.CoercionError, "", meta.Name, "not an integer: "+raw, err)
		}
		return Bound{Value: v}, nil

	case familyDecimal:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Bound{}, dberrors.ForColumn(dberrors.CoercionError, "", meta.Name, "not a decimal: "+raw, err)
		}
		return Bound{Value: v}, nil

	case familyDate:
		t, err := parseDateOrTimestamp(raw, "2006-01-02")
		if err != nil {
			return Bound{}, dberrors.ForColumn(dberrors.CoercionError, "", meta.Name, "not a date: "+raw, err)
		}
		return Bound{Value: t}, nil

	case familyTimestamp:
		t, err := parseDateOrTimestamp(raw, "2006-01-02T15:04:05")
		if err != nil {
			return Bound{}, dberrors.ForColumn(dberrors.CoercionError, "", meta.Name, "not a timestamp: "+raw, err)
		}
		return Bound{Value: t}, nil

	default:
		// "other" family: bind the raw text, carrying a type hint unless
		// the declared type is an array (spec.md §4.3's ARRAY exclusion)
		// or no metadata is available at all.
		if meta.TypeName == "" || strings.Contains(strings.ToUpper(meta.TypeName), "ARRAY") {
			return Bound{Value: raw}, nil
		}
		return Bound{Value: raw, NullTypeCode: meta.TypeName}, nil
	}
}

// isNullLiteral reports whether raw should be treated as SQL NULL: empty,
// whitespace-only, or the literal "null" (case-insensitive).
func isNullLiteral(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, "null")
}

// parseDateOrTimestamp replaces a single space with 'T' (spec.md §4.3's
// replacement rule) before parsing, so "2024-01-02 03:04:05" and
// "2024-01-02T03:04:05" both parse.
func parseDateOrTimestamp(raw, layout string) (time.Time, error) {
	normalized := strings.Replace(strings.TrimSpace(raw), " ", "T", 1)
	return time.Parse(layout, normalized)
}

type typeFamilyKind int

const (
	familyOther typeFamilyKind = iota
	familyBoolean
	familyInteger
	familyDecimal
	familyDate
	familyTimestamp
)

// typeFamily classifies a declared type name (case-insensitive) per
// spec.md §4.3's dispatch table.
func typeFamily(typeName string) typeFamilyKind {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	switch {
	case t == "BOOLEAN" || t == "BOOL":
		return familyBoolean
	case t == "SERIAL" || t == "INT" || t == "INT2" || t == "INT4" || t == "INT8" ||
		t == "INTEGER" || t == "NUMBER" || t == "FLOAT4" || t == "FLOAT8":
		return familyInteger
	case t == "NUMERIC" || t == "DECIMAL":
		return familyDecimal
	case t == "DATE":
		return familyDate
	case t == "TIMESTAMP":
		return familyTimestamp
	default:
		return familyOther
	}
}

// nullTypeCodeFor returns the dialect-neutral NULL type code for meta, per
// spec.md §4.3's "NULL type code" column.
func nullTypeCodeFor(meta model.ColumnMetadata) string {
	switch typeFamily(meta.TypeName) {
	case familyBoolean:
		return "BOOLEAN"
	case familyInteger, familyDecimal:
		return "NUMERIC"
	case familyDate, familyTimestamp:
		return "TIMESTAMP"
	default:
		if meta.TypeName == "" {
			return ""
		}
		return meta.TypeName
	}
}
