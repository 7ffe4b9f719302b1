package checksum

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-repo/internal/attributes"
	"github.com/any-hub/any-repo/internal/storage"
)

// Checksummer 组合存储引擎与属性库，负责计算摘要并维护旁路文件。
type Checksummer struct {
	storage *storage.LocalStorage
	attrs   attributes.Store
	logger  logrus.FieldLogger
}

// NewChecksummer 构建 Checksummer；attrs 可为 nil，此时每次都重新计算摘要。
func NewChecksummer(s *storage.LocalStorage, attrs attributes.Store, logger logrus.FieldLogger) *Checksummer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Checksummer{storage: s, attrs: attrs, logger: logger}
}

// Digests 返回 path 正文的全部摘要。属性库中的记录与正文长度、修改时间一致时直接复用，
// 否则重新计算并回写属性库。
func (c *Checksummer) Digests(ctx context.Context, path string) (Digests, error) {
	return c.digests(ctx, path, false)
}

func (c *Checksummer) digests(ctx context.Context, path string, fresh bool) (Digests, error) {
	file, err := c.retrieveFile(ctx, path)
	if err != nil {
		return nil, err
	}

	if c.attrs != nil && !fresh {
		record, err := c.attrs.Get(ctx, file.Path)
		switch {
		case err == nil:
			cached := Digests(record.Digests)
			if record.Matches(file.Length, file.Modified) && cached.Complete() {
				return cached, nil
			}
		case errors.Is(err, attributes.ErrNotFound):
		default:
			c.logger.WithError(err).WithField("path", file.Path).Warn("attribute_read_failed")
		}
	}

	rc, err := file.Content.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()
	digests, err := Compute(rc)
	if err != nil {
		return nil, fmt.Errorf("digest %s: %w", path, err)
	}

	if c.attrs != nil {
		record := attributes.Record{
			Path:     file.Path,
			Length:   file.Length,
			Modified: file.Modified.UnixNano(),
			Digests:  digests,
		}
		if err := c.attrs.Put(ctx, record); err != nil {
			c.logger.WithError(err).WithField("path", file.Path).Warn("attribute_write_failed")
		}
	}
	return digests, nil
}

// Rebuild 在 SHA1 旁路文件缺失或与正文不符时重写全部旁路文件，返回是否发生了重写。
// 只比较 SHA1：它一致时其余算法也视为一致，这样避免每次遍历都读取全部旁路文件。
// 摘要总是从正文重新计算：同长度、同修改时间的替换写入无法从属性记录中识别。
// force 为 true 时跳过比较直接重写。
func (c *Checksummer) Rebuild(ctx context.Context, path string, force bool) (bool, error) {
	digests, err := c.digests(ctx, path, true)
	if err != nil {
		return false, err
	}

	if !force {
		current, err := c.readSidecar(ctx, SidecarPath(path, SHA1))
		switch {
		case err == nil && current == digests.Get(SHA1):
			return false, nil
		case err == nil, errors.Is(err, storage.ErrItemNotFound):
		default:
			return false, err
		}
	}

	for _, alg := range algorithms {
		value := []byte(digests.Get(alg))
		item := &storage.FileItem{
			Path:    SidecarPath(path, alg),
			Content: storage.BytesLocator(value),
			Length:  int64(len(value)),
		}
		if err := c.storage.StoreItem(ctx, item); err != nil {
			return false, fmt.Errorf("write %s checksum for %s: %w", alg.Name, path, err)
		}
	}
	return true, nil
}

// RemoveSidecars 删除 path 的全部旁路文件及其属性记录。
func (c *Checksummer) RemoveSidecars(ctx context.Context, path string) error {
	for _, alg := range algorithms {
		err := c.storage.ShredItem(ctx, SidecarPath(path, alg))
		if err != nil && !errors.Is(err, storage.ErrItemNotFound) {
			return err
		}
	}
	if c.attrs != nil {
		if err := c.attrs.Delete(ctx, storage.NormalizePath(path)); err != nil {
			c.logger.WithError(err).WithField("path", path).Warn("attribute_delete_failed")
		}
	}
	return nil
}

// IsObsoleteSidecar 判断 path 是否为正文已不存在的旁路文件。
func (c *Checksummer) IsObsoleteSidecar(ctx context.Context, path string) (bool, error) {
	if !IsSidecar(path) {
		return false, nil
	}
	exists, err := c.storage.ContainsItem(ctx, ContentPath(path))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Verify 报告 path 的每个旁路文件是否与正文一致，缺失的旁路文件记为 false。
func (c *Checksummer) Verify(ctx context.Context, path string) (map[string]bool, error) {
	digests, err := c.digests(ctx, path, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(algorithms))
	for _, alg := range algorithms {
		current, err := c.readSidecar(ctx, SidecarPath(path, alg))
		if err != nil && !errors.Is(err, storage.ErrItemNotFound) {
			return nil, err
		}
		out[alg.Name] = err == nil && current == digests.Get(alg)
	}
	return out, nil
}

// readSidecar 读取旁路文件中的摘要，兼容 "<hash>  <filename>" 形式，只取第一个字段。
func (c *Checksummer) readSidecar(ctx context.Context, path string) (string, error) {
	file, err := c.retrieveFile(ctx, path)
	if err != nil {
		return "", err
	}
	rc, err := file.Content.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	line, err := bufio.NewReader(io.LimitReader(rc, 1024)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), nil
}

func (c *Checksummer) retrieveFile(ctx context.Context, path string) (*storage.FileItem, error) {
	item, err := c.storage.RetrieveItem(ctx, path)
	if err != nil {
		return nil, err
	}
	file, ok := item.(*storage.FileItem)
	if !ok {
		return nil, fmt.Errorf("%s is a %s: %w", path, item.Kind(), storage.ErrUnsupportedOperation)
	}
	return file, nil
}
