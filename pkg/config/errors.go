package config

import "errors"

var (
	// ErrParsingConfig wraps every env parse failure.
	ErrParsingConfig = errors.New("failed to parse config from environment")

	// ErrConfigNotLoaded means the cache held a value of another type.
	ErrConfigNotLoaded = errors.New("config cache holds an unexpected type")

	ErrNilPointer = errors.New("config: nil target")
)
