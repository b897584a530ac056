package util

import (
	"log"
	"strings"
	"time"
)

const (
	lockMaxRetries = 3
	lockBaseDelay  = 100 * time.Millisecond
)

// isLockError reports whether err is SQLite's transient "database is locked"
// failure, the only storage error worth retrying. Everything else is fatal.
func isLockError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// RetryOnLock retries the given function if it fails with a database lock
// error, backing off exponentially (100ms, 200ms, 400ms).
func RetryOnLock(operation func() error) error {
	var err error
	for i := 0; i < lockMaxRetries; i++ {
		err = operation()
		if err == nil || !isLockError(err) {
			return err
		}
		delay := lockBaseDelay * time.Duration(1<<i)
		log.Printf("Database locked, retrying in %v...", delay)
		time.Sleep(delay)
	}
	return err
}

// RetryOnLockWithResult is RetryOnLock for operations that return a value.
func RetryOnLockWithResult[T any](operation func() (T, error)) (T, error) {
	var result T
	var err error
	for i := 0; i < lockMaxRetries; i++ {
		result, err = operation()
		if err == nil || !isLockError(err) {
			return result, err
		}
		delay := lockBaseDelay * time.Duration(1<<i)
		log.Printf("Database locked, retrying in %v...", delay)
		time.Sleep(delay)
	}
	return result, err
}
