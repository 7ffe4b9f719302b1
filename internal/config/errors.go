package config

import (
	"errors"
	"fmt"
)

// 配置错误的分类，FieldError 通过 Unwrap 暴露，调用方可用 errors.Is 判断。
var (
	ErrSharedRoot          = errors.New("repository root shared with another repository")
	ErrNestedRoot          = errors.New("repository root nested inside another repository")
	ErrUnknownLayout       = errors.New("unknown repository layout")
	ErrDuplicateRepository = errors.New("duplicate repository name")
)

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
// Repository 为空表示全局字段；Kind 为上面的分类之一，普通校验失败时为空。
type FieldError struct {
	Field      string
	Reason     string
	Repository string
	Kind       error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap 返回错误分类。
func (e FieldError) Unwrap() error {
	return e.Kind
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// newRepositoryError 创建仓库级字段错误，并附带仓库名与错误分类。
func newRepositoryError(repo, field string, kind error, reason string) error {
	return FieldError{Field: repoField(repo, field), Reason: reason, Repository: repo, Kind: kind}
}

// repoField 用于拼接仓库级字段路径，方便输出 Repository[xxx].Field 形式。
func repoField(name, field string) string {
	if name == "" {
		return fmt.Sprintf("Repository[].%s", field)
	}
	return fmt.Sprintf("Repository[%s].%s", name, field)
}
