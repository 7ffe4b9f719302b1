// Package repository wires the configured repositories into runnable units.
// Each Repository owns its storage engine, attribute store and checksummer,
// and serializes metadata rebuilds so that at most one crawl runs per
// repository at a time. The Registry is built once at startup from config and
// shared by the CLI and the ops HTTP surface.
package repository
