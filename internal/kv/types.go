// Package kv re-exports the durable slot abstraction and opens the backend
// selected by configuration. Callers outside the infra layer import this
// package instead of a concrete backend.
package kv

import (
	infrakv "leadcrm/internal/infra/kv"
)

type (
	// Driver identifies a slot backend.
	Driver = infrakv.Driver
	// Slot is the interface every slot backend implements.
	Slot = infrakv.Slot
)

const (
	DriverMemory   = infrakv.DriverMemory
	DriverFile     = infrakv.DriverFile
	DriverSQLite   = infrakv.DriverSQLite
	DriverPostgres = infrakv.DriverPostgres
	DriverRedis    = infrakv.DriverRedis
	DriverS3       = infrakv.DriverS3
)

// ErrEmptyKey is returned by every backend for a blank key.
var ErrEmptyKey = infrakv.ErrEmptyKey
