package attributes

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/any-hub/any-repo/internal/storage"
)

const keyPrefix = "attr:"

// BadgerStore 将属性记录以 CBOR 编码保存在 badger 中。
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger 打开（或创建）dir 下的 badger 数据库；dir 为空时使用内存模式。
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open attribute database %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func recordKey(path string) []byte {
	return []byte(keyPrefix + storage.NormalizePath(path))
}

func (s *BadgerStore) Get(ctx context.Context, path string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var record *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(path))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err = decodeRecord(data)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read attributes %s: %w", path, err)
	}
	return record, nil
}

func (s *BadgerStore) Put(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Path = storage.NormalizePath(record.Path)
	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("encode attributes %s: %w", record.Path, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(record.Path), data)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(path))
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
