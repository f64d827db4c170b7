// Package preflight provides readiness checks that run before a backup job
// spawns makemkvcon and from the CLI doctor command.
//
// Checks cover directory access, free space on the scratch and backup
// filesystems, and the presence of external binaries.
package preflight
