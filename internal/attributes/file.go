package attributes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/any-hub/any-repo/internal/storage"
)

// FileStore 把属性记录作为 metacontent 文件写入仓库保留区，
// 写入经过存储引擎，因此同样是原子的，失败时保留临时文件。
type FileStore struct {
	storage *storage.LocalStorage
}

// NewFileStore 基于仓库存储构建文件属性库。
func NewFileStore(s *storage.LocalStorage) *FileStore {
	return &FileStore{storage: s}
}

func attributePath(itemPath string) string {
	return path.Join(storage.AttributesPath(), storage.NormalizePath(itemPath)) + ".attr"
}

func (s *FileStore) Get(ctx context.Context, itemPath string) (*Record, error) {
	item, err := s.storage.RetrieveItem(ctx, attributePath(itemPath))
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, fmt.Errorf("%s: %w", itemPath, ErrNotFound)
		}
		return nil, err
	}
	file, ok := item.(*storage.FileItem)
	if !ok {
		return nil, fmt.Errorf("%s: %w", itemPath, ErrNotFound)
	}
	rc, err := file.Content.Open()
	if err != nil {
		return nil, fmt.Errorf("open attributes %s: %w", itemPath, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read attributes %s: %w", itemPath, err)
	}
	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode attributes %s: %w", itemPath, err)
	}
	return record, nil
}

func (s *FileStore) Put(ctx context.Context, record Record) error {
	record.Path = storage.NormalizePath(record.Path)
	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("encode attributes %s: %w", record.Path, err)
	}
	return s.storage.StoreItem(ctx, &storage.FileItem{
		Path:        attributePath(record.Path),
		Content:     storage.BytesLocator(data),
		Length:      int64(len(data)),
		Metacontent: true,
	})
}

func (s *FileStore) Delete(ctx context.Context, itemPath string) error {
	err := s.storage.ShredItem(ctx, attributePath(itemPath))
	if err != nil && !errors.Is(err, storage.ErrItemNotFound) {
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
