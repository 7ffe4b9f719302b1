package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Visitor 接收后序遍历的三个回调：进入目录、处理文件、离开目录。
type Visitor interface {
	OnDirEnter(ctx context.Context, logicalPath string) error
	ProcessFile(ctx context.Context, logicalPath string) error
	OnDirExit(ctx context.Context, logicalPath string) error
}

// Walk 从 logicalPath 开始做深度优先遍历，子目录的 OnDirExit 一定先于父目录。
// 以 "." 开头的条目与隐藏临时文件不会被访问。
func (s *LocalStorage) Walk(ctx context.Context, logicalPath string, visitor Visitor) error {
	logicalPath, err := cleanPath("walk", logicalPath)
	if err != nil {
		return err
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Op: "walk", Path: logicalPath, Err: ErrItemNotFound}
		}
		return wrapErr("walk", logicalPath, err)
	}
	if !info.IsDir() {
		return visitor.ProcessFile(ctx, logicalPath)
	}
	return s.walkDir(ctx, target, logicalPath, visitor)
}

func (s *LocalStorage) walkDir(ctx context.Context, physical, logical string, visitor Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := visitor.OnDirEnter(ctx, logical); err != nil {
		return err
	}

	entries, err := os.ReadDir(physical)
	if err != nil {
		return wrapErr("walk", logical, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if isHiddenName(name) || strings.HasSuffix(name, TempSuffix) {
			continue
		}
		childLogical := path.Join(logical, name)
		if entry.IsDir() {
			if err := s.walkDir(ctx, filepath.Join(physical, name), childLogical, visitor); err != nil {
				return err
			}
			continue
		}
		if err := visitor.ProcessFile(ctx, childLogical); err != nil {
			return err
		}
	}

	return visitor.OnDirExit(ctx, logical)
}
