package mongo

import "errors"

var (
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL, set MONGODB_URL")
	ErrFailedToConnectToMongo = errors.New("mongo connect failed")
	ErrHealthcheckFailed      = errors.New("mongo ping failed")
)
