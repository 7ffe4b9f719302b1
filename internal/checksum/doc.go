// Package checksum computes content digests and keeps the .md5/.sha1/.sha256/
// .sha512 sidecar files of a repository item in step with its content.
// Digests are cached in the attribute store keyed by item path so that a
// crawl over an unchanged tree does not re-read every artifact.
package checksum
