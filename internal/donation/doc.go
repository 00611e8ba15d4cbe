// Package donation defines the donation record model and its sync
// state machine.
//
// A Record is created locally while the device may be offline, persisted
// by internal/store, and later reconciled against the remote receipt API
// by internal/syncer. The sync lifecycle is:
//
//	pending → syncing → synced
//	                  → failed → syncing (retry)
//	                           → failed_permanent (attempts >= 3)
//
// synced and failed_permanent are terminal for automatic processing.
// failed_permanent can only return to pending through an explicit
// user-initiated retry, which also zeroes the attempt counter.
//
// Amounts are exact decimals (cockroachdb/apd); floating point is never
// used for money anywhere in this module.
package donation
