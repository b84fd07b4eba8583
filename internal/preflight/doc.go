// Package preflight provides readiness checks for the external tools,
// transcription backend and filesystem paths that cueforge depends on.
//
// These checks run in two contexts:
//   - The generate command calls RunAll before staging any audio. If a check
//     fails the job is refused instead of failing halfway through a long file.
//   - The CLI "cueforge status" command uses the individual check functions
//     to display environment health.
//
// Provider checks are gated by the configured backend; whisperx installs are
// never probed over the network.
package preflight
