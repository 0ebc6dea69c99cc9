package accountdb

import "errors"

var (
	// ErrConnection wraps failures to open or ping the underlying database.
	ErrConnection = errors.New("accountdb: connection error")
	// ErrConfiguration wraps an invalid Config.
	ErrConfiguration = errors.New("accountdb: configuration error")
)
