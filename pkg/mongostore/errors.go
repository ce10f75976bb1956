package mongostore

import "errors"

var (
	// ErrFailedToConnectToMongo indicates that the MongoDB server did not become
	// reachable within the configured retry budget.
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

	// ErrNilCollection indicates that the store was constructed without a collection.
	ErrNilCollection = errors.New("nil mongo collection")
)
