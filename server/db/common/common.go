// Package common contains utility methods used by all adapters.
package common

import (
	"errors"
	"strconv"
	"time"
)

// ErrNotInitialized is returned when the version record is missing.
var ErrNotInitialized = errors.New("Database not initialized")

// If DB request timeout is specified,
// we allocate txTimeoutMultiplier times more time for transactions.
const txTimeoutMultiplier = 1.5

// CheckVersion returns an error if the version of the database differs from the version of the adapter.
func CheckVersion(actual, expected int) error {
	if actual != expected {
		return errors.New("Invalid database version " + strconv.Itoa(actual) +
			". Expected " + strconv.Itoa(expected))
	}
	return nil
}

// MetaId returns the primary key of the topic metadata record in document stores: "<topic>:<key>".
func MetaId(topic int64, key string) string {
	return strconv.FormatInt(topic, 10) + ":" + key
}

// Timeouts converts the request timeout in seconds into query and transaction timeouts.
// Zero or negative values disable timeouts.
func Timeouts(seconds int) (query, tx time.Duration) {
	if seconds <= 0 {
		return 0, 0
	}
	return time.Duration(seconds) * time.Second,
		time.Duration(float64(seconds)*txTimeoutMultiplier) * time.Second
}
