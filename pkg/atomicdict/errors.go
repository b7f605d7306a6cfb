package atomicdict

import "errors"

// ErrNotFound is returned by Get, Delete and Expectation.Unwrap when a key
// has no current value.
var ErrNotFound = errors.New("atomicdict: key not found")

// ErrExpectationFailed is returned by CompareAndSet when the observed
// value does not match the expected one.
var ErrExpectationFailed = errors.New("atomicdict: expectation failed")

// ErrConcurrentUsageDetected is returned by a FastIter when it observes an
// entry that was concurrently deleted while being read.
var ErrConcurrentUsageDetected = errors.New("atomicdict: concurrent usage detected")

// errMustGrow signals internally that a probe exceeded maxDistance and the
// caller must trigger a migration before retrying. It never escapes the
// package.
var errMustGrow = errors.New("atomicdict: must grow")
