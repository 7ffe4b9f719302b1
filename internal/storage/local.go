package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultCopyBufferSize 是写入临时文件时的默认缓冲区大小。
const DefaultCopyBufferSize = 8192

// Options 控制存储引擎的可调参数，零值即默认行为（8K 缓冲、rename 不重试）。
type Options struct {
	CopyBufferSize   int
	RenameRetries    int
	RenameRetryDelay time.Duration
	Logger           logrus.FieldLogger
	Metrics          Metrics
	Platform         Platform
}

// PathFilter 决定 MoveItem 是否处理某个源逻辑路径，返回 false 表示跳过该条目及其子树。
type PathFilter func(logicalPath string) bool

// LocalStorage 将逻辑条目操作映射为 root 目录下的文件操作。
type LocalStorage struct {
	root     string
	tmpDir   string
	opts     Options
	logger   logrus.FieldLogger
	metrics  Metrics
	platform Platform
	locks    *pathLocks
}

// NewLocalStorage 以 root 为仓库根目录构建存储引擎，必要时创建根目录与临时目录。
func NewLocalStorage(root string, opts Options) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("repository root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}

	if opts.CopyBufferSize <= 0 {
		opts.CopyBufferSize = DefaultCopyBufferSize
	}
	if opts.RenameRetries < 0 {
		opts.RenameRetries = 0
	}
	if opts.RenameRetryDelay < 0 {
		opts.RenameRetryDelay = 0
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Platform == nil {
		opts.Platform = defaultPlatform()
	}

	s := &LocalStorage{
		root:     abs,
		tmpDir:   filepath.Join(abs, filepath.FromSlash(strings.TrimPrefix(tmpPath, "/"))),
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		platform: opts.Platform,
		locks:    newPathLocks(),
	}
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp directory: %w", err)
	}
	return s, nil
}

// Root 返回仓库根目录的绝对路径。
func (s *LocalStorage) Root() string {
	return s.root
}

// Resolve 将逻辑路径解析为物理路径，越界返回 ErrPathEscape。
func (s *LocalStorage) Resolve(logicalPath string) (string, error) {
	return resolveWith(s.platform, s.root, logicalPath)
}

// IsReachable 报告条目存在且当前进程可读，不做任何修改。
func (s *LocalStorage) IsReachable(ctx context.Context, logicalPath string) bool {
	if ctx.Err() != nil {
		return false
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return false
	}
	return s.platform.Readable(target)
}

// ContainsItem 报告逻辑路径上是否存在条目。
func (s *LocalStorage) ContainsItem(ctx context.Context, logicalPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrapErr("contains", logicalPath, err)
	}
	return true, nil
}

// RetrieveItem 返回逻辑路径对应的条目：目录、普通文件或链接。
// 属性区内的文件不做链接探测。
func (s *LocalStorage) RetrieveItem(ctx context.Context, logicalPath string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logicalPath, err := cleanPath("retrieve", logicalPath)
	if err != nil {
		return nil, err
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
		}
		return nil, wrapErr("retrieve", logicalPath, err)
	}
	return s.itemFromInfo(logicalPath, target, info)
}

func (s *LocalStorage) itemFromInfo(logicalPath, target string, info fs.FileInfo) (Item, error) {
	if info.IsDir() {
		return &CollectionItem{Path: logicalPath, Modified: info.ModTime()}, nil
	}

	if !isMetacontentPath(logicalPath) && info.Size() <= linkSniffLimit {
		head, err := readHead(target, linkSniffLimit)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
			}
			return nil, wrapErr("retrieve", logicalPath, err)
		}
		if linkTarget, ok := ParseLinkContent(head); ok {
			return &LinkItem{
				Path:     logicalPath,
				Target:   linkTarget,
				Created:  info.ModTime(),
				Modified: info.ModTime(),
			}, nil
		}
	}

	return &FileItem{
		Path:        logicalPath,
		Content:     FileLocator{Path: target},
		Length:      info.Size(),
		MimeType:    detectMimeType(target),
		Created:     info.ModTime(),
		Modified:    info.ModTime(),
		Metacontent: isMetacontentPath(logicalPath),
	}, nil
}

// StoreItem 原子地写入条目。文件内容先完整写入隐藏临时文件，
// 仅在 rename 这一可见性变化步骤持有路径锁。
func (s *LocalStorage) StoreItem(ctx context.Context, item Item) (err error) {
	if item == nil {
		return wrapErr("store", "", errors.New("nil item"))
	}
	defer func() { s.metrics.ObserveOperation("store", err) }()
	logicalPath, err := cleanPath("store", item.ItemPath())
	if err != nil {
		return err
	}

	switch it := item.(type) {
	case *CollectionItem:
		target, err := s.Resolve(logicalPath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return wrapErr("store", logicalPath, err)
		}
		return nil
	case *LinkItem:
		content := linkContent(it.Target)
		return s.storeContent(ctx, logicalPath, bytes.NewReader(content), int64(len(content)), it.Modified, false)
	case *FileItem:
		if it.Content == nil {
			return wrapErr("store", logicalPath, errors.New("file item has no content"))
		}
		rc, err := it.Content.Open()
		if err != nil {
			return wrapErr("store", logicalPath, err)
		}
		defer rc.Close()

		metacontent := it.Metacontent || isMetacontentPath(logicalPath)
		reader := bufio.NewReaderSize(rc, s.opts.CopyBufferSize)
		if !metacontent {
			head, _ := reader.Peek(len(linkPrefix))
			if IsLinkContent(head) {
				return fmt.Errorf("store link content as file %s: %w", logicalPath, ErrUnsupportedOperation)
			}
		}
		return s.storeContent(ctx, logicalPath, reader, it.Length, it.Modified, metacontent)
	default:
		return fmt.Errorf("store %T at %s: %w", item, logicalPath, ErrUnsupportedOperation)
	}
}

func (s *LocalStorage) storeContent(
	ctx context.Context,
	logicalPath string,
	src io.Reader,
	length int64,
	modified time.Time,
	metacontent bool,
) error {
	started := time.Now()
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return wrapErr("store", logicalPath, err)
	}
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return wrapErr("store", logicalPath, err)
	}

	tempName := filepath.Join(s.tmpDir, fmt.Sprintf(".%s.%s%s", filepath.Base(target), uuid.NewString(), TempSuffix))
	tempFile, err := os.OpenFile(tempName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapErr("store", logicalPath, err)
	}

	written, copyErr := copyWithContext(ctx, tempFile, src, make([]byte, s.opts.CopyBufferSize))
	if copyErr == nil && length >= 0 && written < length {
		copyErr = ErrStorageEOF
	}
	closeErr := tempFile.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(tempName)
		s.metrics.ObserveStore(written, time.Since(started), copyErr)
		if errors.Is(copyErr, ErrStorageEOF) {
			return fmt.Errorf("store %s after %d bytes: %w", logicalPath, written, ErrStorageEOF)
		}
		return wrapErr("store", logicalPath, copyErr)
	}

	unlock := s.locks.lock(logicalPath)
	defer unlock()

	if err := s.rename(ctx, tempName, target); err != nil {
		s.cleanupFailedStore(logicalPath, tempName, "", metacontent, err)
		s.metrics.ObserveStore(written, time.Since(started), err)
		return err
	}

	if !modified.IsZero() {
		if err := os.Chtimes(target, modified, modified); err != nil {
			s.cleanupFailedStore(logicalPath, "", target, metacontent, err)
			s.metrics.ObserveStore(written, time.Since(started), err)
			return wrapErr("store", logicalPath, err)
		}
	}

	s.metrics.ObserveStore(written, time.Since(started), nil)
	return nil
}

// cleanupFailedStore 删除失败写入留下的临时文件或目标文件。
// 属性文件写入失败时保留临时文件作为恢复依据，只输出告警。
func (s *LocalStorage) cleanupFailedStore(logicalPath, tempName, target string, metacontent bool, cause error) {
	if metacontent {
		s.logger.WithFields(logrus.Fields{
			"action":    "store_cleanup_skipped",
			"path":      logicalPath,
			"temp_file": tempName,
		}).WithError(cause).Warn("attribute write failed, leaving temp file for recovery")
		return
	}
	if tempName != "" {
		if err := os.Remove(tempName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.WithError(err).WithField("path", logicalPath).Warn("remove temp file failed")
		}
	}
	if target != "" {
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.WithError(err).WithField("path", logicalPath).Warn("remove target failed")
		}
	}
}

// rename 按配置的次数与固定间隔重试 rename，全部失败时返回汇总了每次原因的 RenameError。
func (s *LocalStorage) rename(ctx context.Context, from, to string) error {
	var (
		attempts int
		causes   error
	)
	delay := s.opts.RenameRetryDelay
	backoff := retry.WithMaxRetries(uint64(s.opts.RenameRetries), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.metrics.RenameRetry()
		}
		if err := os.Rename(from, to); err != nil {
			causes = multierr.Append(causes, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		causes = multierr.Append(causes, ctxErr)
	}
	if causes == nil {
		causes = err
	}
	return &RenameError{From: from, To: to, Attempts: attempts, Err: causes}
}

// ShredItem 删除文件，或递归删除目录但跳过名称以 "." 开头的条目。
// 没有删除任何内容时返回 ErrItemNotFound。
func (s *LocalStorage) ShredItem(ctx context.Context, logicalPath string) (err error) {
	defer func() { s.metrics.ObserveOperation("shred", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	logicalPath, err = cleanPath("shred", logicalPath)
	if err != nil {
		return err
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(logicalPath)
	defer unlock()

	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
		}
		return wrapErr("shred", logicalPath, err)
	}

	if !info.IsDir() {
		if err := os.Remove(target); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
			}
			return wrapErr("shred", logicalPath, err)
		}
		return nil
	}

	deleted, _, err := s.removeTree(ctx, target, target != s.root)
	if err != nil {
		return wrapErr("shred", logicalPath, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
	}
	return nil
}

// removeTree 删除 dir 下的非保留条目，返回删除数量以及是否有条目被保留。
func (s *LocalStorage) removeTree(ctx context.Context, dir string, removeSelf bool) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, true, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, true, err
	}

	deleted := 0
	kept := false
	for _, entry := range entries {
		if isHiddenName(entry.Name()) {
			kept = true
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			n, childKept, err := s.removeTree(ctx, child, true)
			deleted += n
			if err != nil {
				return deleted, true, err
			}
			if childKept {
				kept = true
			}
			continue
		}
		if err := os.Remove(child); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleted, true, err
		}
		deleted++
	}

	if removeSelf && !kept {
		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleted, true, err
		}
		deleted++
	}
	return deleted, kept, nil
}

// MoveItem 移动文件或目录。目录移动逐项 rename 并跳过以 "." 开头的条目；
// 目标位于源目录之内且未提供 filter 时拒绝执行。
func (s *LocalStorage) MoveItem(ctx context.Context, from, to string, filter PathFilter) (err error) {
	defer func() { s.metrics.ObserveOperation("move", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	if from, err = cleanPath("move", from); err != nil {
		return err
	}
	if to, err = cleanPath("move", to); err != nil {
		return err
	}

	src, err := s.Resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.Resolve(to)
	if err != nil {
		return err
	}

	info, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", from, ErrItemNotFound)
		}
		return wrapErr("move", from, err)
	}

	unlock := s.locks.lockPair(from, to)
	defer unlock()

	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return wrapErr("move", to, err)
		}
		return s.rename(ctx, src, dst)
	}

	if isDescendant(from, to) && filter == nil {
		return fmt.Errorf("move %s -> %s: %w", from, to, ErrMoveIntoSelf)
	}

	var files, dirs []string
	if err := s.collectTree(ctx, src, from, filter, &files, &dirs); err != nil {
		return wrapErr("move", from, err)
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return wrapErr("move", to, err)
	}
	for _, rel := range dirs {
		if err := os.MkdirAll(filepath.Join(dst, filepath.FromSlash(rel)), 0o755); err != nil {
			return wrapErr("move", to, err)
		}
	}
	for _, rel := range files {
		srcFile := filepath.Join(src, filepath.FromSlash(rel))
		dstFile := filepath.Join(dst, filepath.FromSlash(rel))
		if err := s.rename(ctx, srcFile, dstFile); err != nil {
			return err
		}
	}

	// 自底向上清理已清空的源目录；仍含保留条目或被过滤条目的目录会 remove 失败，直接忽略。
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(filepath.Join(src, filepath.FromSlash(dirs[i])))
	}
	if src != s.root {
		_ = os.Remove(src)
	}
	return nil
}

// collectTree 先完整收集待移动条目再执行，保证移动过程中新建的目标目录不会被再次遍历。
func (s *LocalStorage) collectTree(ctx context.Context, dir, logicalDir string, filter PathFilter, files, dirs *[]string) error {
	var walk func(physical, logical, rel string) error
	walk = func(physical, logical, rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := os.ReadDir(physical)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			if isHiddenName(name) {
				continue
			}
			childLogical := path.Join(logical, name)
			if filter != nil && !filter(childLogical) {
				continue
			}
			childRel := path.Join(rel, name)
			if entry.IsDir() {
				*dirs = append(*dirs, childRel)
				if err := walk(filepath.Join(physical, name), childLogical, childRel); err != nil {
					return err
				}
				continue
			}
			*files = append(*files, childRel)
		}
		return nil
	}
	return walk(dir, logicalDir, "")
}

// ListItems 列出目录的直接子条目，忽略尚未完成的隐藏临时文件。
func (s *LocalStorage) ListItems(ctx context.Context, logicalPath string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logicalPath, err := cleanPath("list", logicalPath)
	if err != nil {
		return nil, err
	}
	target, err := s.Resolve(logicalPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", logicalPath, ErrItemNotFound)
		}
		return nil, wrapErr("list", logicalPath, err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), TempSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, wrapErr("list", logicalPath, err)
		}
		childLogical := path.Join(logicalPath, entry.Name())
		item, err := s.itemFromInfo(childLogical, filepath.Join(target, entry.Name()), info)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemPath() < items[j].ItemPath() })
	return items, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var copied int64
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return copied, ErrStorageEOF
			}
			return copied, err
		}
	}
}

func readHead(path string, limit int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, int64(limit)))
}

func detectMimeType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}
