package flagstate

import "errors"

// Predefined errors for the flagstate package.
var (
	// ErrUnknownFeature indicates that a flag name was never declared in the registry.
	// It signals a programmer error: the caller references a feature that does not
	// exist for this entity type.
	ErrUnknownFeature = errors.New("unknown feature flag")

	// ErrInvalidDefinition indicates that a flag definition is malformed.
	ErrInvalidDefinition = errors.New("invalid flag definition")

	// ErrAlreadyPersisted indicates a create for an entity that already has a
	// persisted flag record. Typically caused by a concurrent first write.
	ErrAlreadyPersisted = errors.New("flag record already exists for entity")

	// ErrNotPersisted indicates a merge or replace against an entity that has no
	// persisted flag record yet.
	ErrNotPersisted = errors.New("no flag record exists for entity")

	// ErrInvalidState indicates that state construction parameters are invalid.
	ErrInvalidState = errors.New("invalid flag state parameters")
)
