// Package manager coordinates generation requests for the registered models.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: request and per-model state types.
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, IsDependencyUnavailable).
//   - admission.go: per-model queueing and generation admission.
//   - stream.go: Stream and Complete, the generation entry points.
//   - status_report.go: Status reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//
// External packages should treat this package as the orchestration layer and use
// public methods only (e.g., NewWithConfig, Ready, ListModels, Status, Stream).
package manager
