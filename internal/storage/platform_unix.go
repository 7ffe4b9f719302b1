//go:build !windows

package storage

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

type posixPlatform struct{}

func defaultPlatform() Platform {
	return posixPlatform{}
}

func (posixPlatform) Readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

func (posixPlatform) Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
