//go:build windows

package storage

import (
	"os"
	"path/filepath"
	"strings"
)

type windowsPlatform struct{}

func defaultPlatform() Platform {
	return windowsPlatform{}
}

func (windowsPlatform) Readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Canonical 对 UNC 根（\\server\share）不做符号链接解析，EvalSymlinks 在共享根上会失败。
func (windowsPlatform) Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(abs, `\\`) {
		return abs, nil
	}
	return filepath.EvalSymlinks(abs)
}
