// Package syncer reconciles the local donation queue against the remote
// receipt API.
//
// Two pieces:
//
// Processor runs a single sync pass: snapshot the eligible records
// (pending ∪ failed, creation order), submit them strictly one at a time,
// and apply the state machine through the store's named mutations. The
// attempt is persisted (syncing, attempts+1) BEFORE the network call, so
// a crash mid-flight leaves a reclaimable record rather than a lost or
// duplicated one. No single record's failure aborts the rest of the pass.
//
// Orchestrator owns the sync lifecycle: it serializes the three trigger
// sources (periodic timer, connectivity offline→online edge, manual
// "sync now") through an atomic single-flight guard, reclaims interrupted
// records at startup, and publishes an observable status snapshot for
// badges and progress labels.
package syncer
