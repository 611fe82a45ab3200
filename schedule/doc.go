// Package schedule runs recurring background jobs on cron expressions.
//
// The Scheduler wraps a cron runner configured for UTC with an optional
// seconds field. Jobs are panic-recovered and skipped when a previous run
// is still in progress.
package schedule
