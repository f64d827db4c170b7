// Package textutil provides text helpers for disc naming.
//
// DisplayLabel turns raw optical volume labels into readable titles and
// DiscName produces the filesystem-safe identifier used for scratch and backup
// directories. SanitizeFileName is shared by both and by callers that accept
// user supplied names.
package textutil
