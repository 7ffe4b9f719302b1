package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

// ItemKind 区分条目的三种形态。
type ItemKind int

const (
	KindFile ItemKind = iota
	KindCollection
	KindLink
)

func (k ItemKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindCollection:
		return "collection"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Item 是仓库中一个逻辑条目，路径均为以 "/" 开头的仓库相对路径。
type Item interface {
	ItemPath() string
	Kind() ItemKind
	ModTime() time.Time
}

// FileItem 携带正文定位器与文件属性。Metacontent 标记属性类文件，
// 这类文件不做链接探测，写入失败时保留临时文件以便恢复。
type FileItem struct {
	Path        string
	Content     ContentLocator
	Length      int64
	MimeType    string
	Created     time.Time
	Modified    time.Time
	Metacontent bool
}

func (f *FileItem) ItemPath() string   { return f.Path }
func (f *FileItem) Kind() ItemKind     { return KindFile }
func (f *FileItem) ModTime() time.Time { return f.Modified }

// CollectionItem 表示目录。
type CollectionItem struct {
	Path     string
	Modified time.Time
}

func (c *CollectionItem) ItemPath() string   { return c.Path }
func (c *CollectionItem) Kind() ItemKind     { return KindCollection }
func (c *CollectionItem) ModTime() time.Time { return c.Modified }

// LinkItem 指向仓库内另一条目，落盘为链接标记内容。
type LinkItem struct {
	Path     string
	Target   string
	Created  time.Time
	Modified time.Time
}

func (l *LinkItem) ItemPath() string   { return l.Path }
func (l *LinkItem) Kind() ItemKind     { return KindLink }
func (l *LinkItem) ModTime() time.Time { return l.Modified }

// ErrContentConsumed 表示一次性内容源已被读取过。
var ErrContentConsumed = errors.New("content already consumed")

// ContentLocator 抽象一个可读取的字节源。不可复用的实现只能 Open 一次，
// 调用方不得假设可 Seek 或重复读取。
type ContentLocator interface {
	Open() (io.ReadCloser, error)
	Reusable() bool
}

// ReaderLocator 包装一次性的数据流，例如上传请求体。
type ReaderLocator struct {
	mu     sync.Mutex
	reader io.Reader
	used   bool
}

// NewReaderLocator 构建一次性内容源。
func NewReaderLocator(r io.Reader) *ReaderLocator {
	return &ReaderLocator{reader: r}
}

func (l *ReaderLocator) Open() (io.ReadCloser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used {
		return nil, ErrContentConsumed
	}
	l.used = true
	if rc, ok := l.reader.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(l.reader), nil
}

func (l *ReaderLocator) Reusable() bool { return false }

// BytesLocator 是内存中的可复用内容源。
type BytesLocator []byte

func (b BytesLocator) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (b BytesLocator) Reusable() bool { return true }

// FileLocator 指向磁盘上的物理文件，每次 Open 重新打开。
type FileLocator struct {
	Path string
}

func (f FileLocator) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f FileLocator) Reusable() bool { return true }
