// Package attributes persists per-item side-channel attributes (currently the
// content digests) outside the item bytes. Two backends exist: a badger
// key-value database and metacontent files stored by the repository itself
// under its reserved attribute area.
package attributes

import (
	"context"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrNotFound 表示该路径尚无属性记录。
var ErrNotFound = errors.New("attributes not found")

// Record 是单个条目的属性快照，Length/Modified 用于判断记录是否仍与正文一致。
type Record struct {
	Path     string            `cbor:"path"`
	Length   int64             `cbor:"length"`
	Modified int64             `cbor:"modified"`
	Digests  map[string]string `cbor:"digests"`
}

// Matches 判断记录是否描述当前长度与修改时间的正文。
func (r *Record) Matches(length int64, modified time.Time) bool {
	if r == nil {
		return false
	}
	return r.Length == length && r.Modified == modified.UnixNano()
}

// Store 以条目路径为键读写属性记录。
type Store interface {
	Get(ctx context.Context, path string) (*Record, error)
	Put(ctx context.Context, record Record) error
	Delete(ctx context.Context, path string) error
	Close() error
}

func encodeRecord(record Record) ([]byte, error) {
	return cbor.Marshal(record)
}

func decodeRecord(data []byte) (*Record, error) {
	var record Record
	if err := cbor.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
