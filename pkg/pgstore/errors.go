package pgstore

import "errors"

var (
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrNilPool                  = errors.New("nil connection pool")
	ErrInvalidTableName         = errors.New("invalid table name")
)
