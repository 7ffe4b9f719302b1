// Package storage is the local filesystem engine behind a single repository
// root. Logical item operations (store/retrieve/shred/move/list) are mapped to
// <root>/<path> files with crash-safe semantics: content is streamed into a
// hidden temp file under <root>/.repo/tmp and only becomes visible through an
// atomic rename performed while holding the per-path write lock. Readers never
// lock and therefore observe either the previous or the new file, never a torn
// one. Entries whose name starts with "." are reserved and are skipped by
// recursive delete, move and walk.
package storage
