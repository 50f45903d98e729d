package tables

import "errors"

var (
	ErrEmptyName       = errors.New("table name is empty")
	ErrNoColumns       = errors.New("table has no columns")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownType     = errors.New("unknown column type")
	ErrInvalidAttr     = errors.New("invalid attribute")
	ErrInvalidText     = errors.New("text is not valid UTF-8")
	ErrInvalidImpl     = errors.New("invalid implementation reference")
	ErrDuplicateTable  = errors.New("duplicate table")
	ErrDuplicateImpl   = errors.New("duplicate implementation")
	ErrUnresolvedImpl  = errors.New("unresolved implementation")
	ErrUnknownTable    = errors.New("unknown table")
	ErrRowShape        = errors.New("row does not match schema")
)
