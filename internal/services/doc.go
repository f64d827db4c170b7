// Package services defines shared utilities consumed by the backup engine and
// its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, disc names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers tell rip
//     failures, finalization failures, cancellations, and configuration
//     problems apart with errors.Is.
//
// Tool wrappers live in subpackages (makemkv, sevenzip) so command execution
// and progress streaming stay testable behind small interfaces.
package services
