package storage

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// ReservedDir 存放引擎内部数据（临时文件、属性），名称以 "." 开头因此不会被递归删除/移动波及。
	ReservedDir = ".repo"
	// TempSuffix 标记尚未 rename 到最终位置的隐藏临时文件。
	TempSuffix = ".anyrepo-upload"
)

var (
	tmpPath        = "/" + ReservedDir + "/tmp"
	attributesPath = "/" + ReservedDir + "/attributes"
)

// AttributesPath 返回属性文件区的逻辑根路径。
func AttributesPath() string {
	return attributesPath
}

// NormalizePath 将逻辑路径规整为以 "/" 开头、无冗余分隔符的形式。
// 它不做越界校验，入口处由 cleanPath 拒绝越界的 ".."。
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	return cleaned
}

// cleanPath 规整逻辑路径，并拒绝 ".." 越过仓库根的输入。
// NormalizePath 会把 "/../x" 折叠成 "/x"，因此越界必须在折叠之前判断。
func cleanPath(op, p string) (string, error) {
	depth := 0
	for _, segment := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		switch segment {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", &StorageError{Op: op, Path: p, Err: ErrPathEscape}
			}
		default:
			depth++
		}
	}
	return NormalizePath(p), nil
}

// Resolve 将逻辑路径映射为 root 下的物理路径，并确认结果位于 root 之内。
// 已存在的路径前缀会解析符号链接后再次校验。
func Resolve(root, logicalPath string) (string, error) {
	return resolveWith(defaultPlatform(), root, logicalPath)
}

func resolveWith(platform Platform, root, logicalPath string) (string, error) {
	rel := strings.ReplaceAll(logicalPath, "\\", "/")
	rel = strings.TrimLeft(rel, "/")
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, target) {
		return "", &StorageError{Op: "resolve", Path: logicalPath, Err: ErrPathEscape}
	}

	canonicalRoot, err := platform.Canonical(root)
	if err != nil {
		return "", &StorageError{Op: "resolve", Path: logicalPath, Err: err}
	}
	real, err := canonicalExisting(platform, target)
	if err != nil {
		return "", &StorageError{Op: "resolve", Path: logicalPath, Err: err}
	}
	if !within(canonicalRoot, real) {
		return "", &StorageError{Op: "resolve", Path: logicalPath, Err: ErrPathEscape}
	}
	return target, nil
}

// canonicalExisting 解析 target 最深的已存在祖先，再拼回不存在的剩余部分。
func canonicalExisting(platform Platform, target string) (string, error) {
	var rest []string
	current := target
	for {
		if _, err := os.Lstat(current); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return target, nil
		}
		rest = append([]string{filepath.Base(current)}, rest...)
		current = parent
	}
	real, err := platform.Canonical(current)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{real}, rest...)...), nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// isDescendant 判断逻辑路径 child 是否等于 parent 或位于其下。
func isDescendant(parent, child string) bool {
	parent = NormalizePath(parent)
	child = NormalizePath(child)
	if parent == "/" || parent == child {
		return true
	}
	return strings.HasPrefix(child, parent+"/")
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isMetacontentPath(logical string) bool {
	return isDescendant(attributesPath, logical)
}
