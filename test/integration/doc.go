// Package integration contains integration tests for the vocabulary service.
//
// These tests use testcontainers to spin up real dependencies (PostgreSQL)
// and verify the session store and repositories against an actual database
// rather than the in-memory fallbacks.
package integration
