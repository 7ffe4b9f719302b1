package storage

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrPathEscape 表示逻辑路径解析后跳出了仓库根目录，属于安全问题，禁止重试。
	ErrPathEscape = errors.New("path escapes repository root")
	// ErrStorageEOF 表示写入时源数据流提前结束，调用方可选择向上游重试。
	ErrStorageEOF = errors.New("premature end of content stream")
	// ErrItemNotFound 表示条目不存在，属于预期内的缺失，不应按失败记录。
	ErrItemNotFound = errors.New("item not found")
	// ErrUnsupportedOperation 表示操作不被当前条目类型支持，例如通过普通文件路径写入链接内容。
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrMoveIntoSelf 表示目标目录位于源目录之内且未提供绕开循环的过滤器。
	ErrMoveIntoSelf = errors.New("move destination is inside source")
)

// StorageError 包装底层 IO 错误并附带操作名与逻辑路径。
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

// RenameError 汇总所有 rename 尝试的失败原因。
type RenameError struct {
	From     string
	To       string
	Attempts int
	Err      error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename %s -> %s failed after %d attempt(s): %v", e.From, e.To, e.Attempts, e.Err)
}

func (e *RenameError) Unwrap() []error {
	return multierr.Errors(e.Err)
}

// Causes 返回每次尝试的失败原因，顺序与尝试顺序一致。
func (e *RenameError) Causes() []error {
	return multierr.Errors(e.Err)
}
