// Package staging owns the per-job scratch directories that hold audio chunks
// while a job runs.
//
// Each job gets <staging_dir>/<job id>, guarded by an flock on a .lock file so
// that cleanup never removes a directory a live job is still writing to.
package staging
