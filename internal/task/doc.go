// Package task manages generation jobs: it records each task's lifecycle in an
// in-memory Store, runs jobs on a fixed-size WorkerPool and exposes both
// through the Service consumed by the HTTP layer.
//
// A task moves from pending to processing and then to exactly one of the
// terminal states completed or failed. Terminal tasks never change again.
package task
