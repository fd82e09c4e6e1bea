package record

import "errors"

// ErrMissingKey is returned when Load() has no key value to work with,
// neither as an argument nor as a previously set primary-key field.
var ErrMissingKey = errors.New("no key value to load by")

// ErrNoPrimaryKey is returned when a key-addressed operation is requested
// on a table that declares no primary key.
var ErrNoPrimaryKey = errors.New("table has no primary key")

// ErrStatementKind is returned when a WITH, UNION or raw statement is
// requested on a shape-constrained RecordSet.
var ErrStatementKind = errors.New("statement kind not allowed here")

// ErrItemMismatch is returned by RecordSet.Add() when the record does not
// share the sample record's table.
var ErrItemMismatch = errors.New("record does not match sample")

// ErrNoStatement is returned by Run() when no statement has been selected.
var ErrNoStatement = errors.New("no active statement")

// ErrCoerce is returned by Set() in strict mode when a value cannot be
// coerced to the field's type.
var ErrCoerce = errors.New("value coercion failed")
