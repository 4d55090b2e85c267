package stage

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Transform identifies the normalization applied to a column. Dispatch is
// driven by column name through a fixed table, never by runtime value type.
type Transform int

const (
	// TransformNone leaves the value untouched.
	TransformNone Transform = iota
	// TransformDate parses epoch numbers or free-form date strings into time.Time.
	TransformDate
	// TransformJSONBlob serializes lists and mappings to a compact JSON
	// string and nulls everything else; the destination schema only holds
	// scalar cells.
	TransformJSONBlob
	// TransformStringify coerces the value to its textual form unconditionally.
	TransformStringify
)

// DateColumns are the columns normalized (and re-parsed at bind time) as dates.
var DateColumns = []string{"date_created", "date_modified", "date_processed", "last_modified"}

var columnTransforms = func() map[string]Transform {
	m := map[string]Transform{
		"permissions_data": TransformJSONBlob,
		"record_locator":   TransformJSONBlob,
		"points":           TransformJSONBlob,
		"links":            TransformJSONBlob,
		"version":          TransformStringify,
		"page_number":      TransformStringify,
		"regex_metadata":   TransformStringify,
	}
	for _, c := range DateColumns {
		m[c] = TransformDate
	}
	return m
}()

// TransformFor returns the transform registered for the named column.
// Columns without an entry are passed through unchanged.
func TransformFor(column string) Transform {
	return columnTransforms[column]
}

// IsDateColumn reports whether the named column holds a normalized date.
func IsDateColumn(column string) bool {
	return columnTransforms[column] == TransformDate
}

// ParseDate resolves a raw date cell into a time.Time.
//
// The numeric-epoch interpretation is attempted first: integers are taken as
// epoch milliseconds (divided by 1000), floats and numeric strings as epoch
// seconds. When the value is a non-numeric string the failure is logged and
// the value is handed to the general-purpose string parser; an error from
// that second path is fatal for the row and propagates to the caller.
func ParseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int:
		return fromEpochSeconds(float64(t) / 1000), nil
	case int32:
		return fromEpochSeconds(float64(t) / 1000), nil
	case int64:
		return fromEpochSeconds(float64(t) / 1000), nil
	case float32:
		return fromEpochSeconds(float64(t)), nil
	case float64:
		return fromEpochSeconds(t), nil
	case string:
		if secs, err := strconv.ParseFloat(t, 64); err == nil {
			return fromEpochSeconds(secs), nil
		}
		log.Printf("stage: date %q is not a timestamp, trying string parse", t)
		parsed, err := dateparse.ParseAny(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", t, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("parse date: unsupported value %v (%T)", v, v)
	}
}

func fromEpochSeconds(secs float64) time.Time {
	sec := int64(secs)
	nsec := int64((secs - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// NormalizeValue applies the column's registered transform to one cell.
// Nil cells in date columns stay nil; nil cells in stringify columns become
// the literal text "None" (an inherited quirk, kept intentionally).
func NormalizeValue(column string, v any) (any, error) {
	switch TransformFor(column) {
	case TransformDate:
		if v == nil {
			return nil, nil
		}
		return ParseDate(v)
	case TransformJSONBlob:
		return jsonBlob(v)
	case TransformStringify:
		return stringify(v), nil
	default:
		return v, nil
	}
}

// NormalizeRow applies NormalizeValue to every cell of row in place.
// Columns with no registered transform are untouched; a date parse failure
// aborts and surfaces to the caller.
func NormalizeRow(row map[string]any) error {
	for column := range row {
		v, err := NormalizeValue(column, row[column])
		if err != nil {
			return err
		}
		row[column] = v
	}
	return nil
}

// jsonBlob serializes collections to a compact JSON string. Scalars become
// nil: the destination cell only supports serialized structure or nothing.
func jsonBlob(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serialize structured cell: %w", err)
		}
		return string(b), nil
	default:
		return nil, nil
	}
}

func stringify(v any) string {
	if v == nil {
		// str(None) in the reference behavior; preserved as-is.
		return "None"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
