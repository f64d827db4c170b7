// Package deps checks that the external binaries discbackup drives
// (makemkvcon, 7z) can be found on PATH.
package deps
