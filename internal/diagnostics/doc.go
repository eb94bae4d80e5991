// Package diagnostics reports process and host resource usage for the
// system endpoint.
//
// Host figures come from gopsutil and ghw and are best-effort: a value that cannot
// be read is left at zero rather than failing the snapshot.
package diagnostics
