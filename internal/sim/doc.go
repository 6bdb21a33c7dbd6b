// Package sim contains the particle orchestration core of the
// Stern-Gerlach teaching simulation.
//
// The package drives two pooled particle populations through an
// ordered arrangement of measurement apparatuses:
//
//   - [Particle]: pooled entity moving along waypoint paths at
//     constant speed, carrying its per-stage spin history
//   - [Orchestrator]: owns the particle arenas, the apparatus list,
//     and the continuous-emission scheduler; resolves stage
//     transitions, measurement draws, and branch blocking
//   - [Observer]: change notifications for view synchronization
//
// # Determinism
//
// Processing is single-threaded and tick-driven. Within one Step call
// the order is fixed: pending single-shot activation, beam emission,
// then particle advancement in slot-index order (single-shot arena
// before beam arena). With an injected random source the full outcome
// and position sequence is reproducible.
//
// # Thread Safety
//
// Orchestrator instances are NOT thread-safe; all calls must come
// from the owning loop.
package sim
