// Package metadata keeps every directory's maven-metadata.xml and its checksum
// sidecars consistent with the artifact files present on disk. A crawl walks a
// repository subtree bottom-up, collects facts into per-crawl buckets while
// visiting files and rewrites metadata when it leaves each directory.
package metadata
