// Package backup orchestrates a single MakeMKV disc backup from spawn to a
// terminal result.
//
// A Job probes for an existing backup, clears stale scratch output, spawns
// makemkvcon in backup mode and consumes its robot-mode stream on one event
// loop. The PhaseTracker separates the meaningless scan ramp from the copy
// phase, the Estimator turns scratch directory size into a monotonic
// percentage, and the classifier sorts MakeMKV messages into recoverable and
// fatal records. After a clean exit the PostProcessor extracts single-file
// images or relocates the decrypted tree into the backup directory.
//
// Every exit path removes the scratch directory unless the backup was
// finalized, and observers receive exactly one terminal state.
package backup
