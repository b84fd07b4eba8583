// Package jobstore records subtitle job history in SQLite.
//
// Only metadata lives here: source path, language, provider, status
// transitions, error codes and the final quality score. Segment arrays are
// never persisted; each job owns its segments in memory for its lifetime.
//
// Status moves pending -> running -> completed|failed. Jobs left in running
// by a crashed process are failed on the next ResetStuck call.
package jobstore
