package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/any-hub/any-repo/internal/layout"
)

var (
	validate        = validator.New()
	repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Validate 先执行结构体标签校验，再做语义级别检查，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.Global.RenameRetryDelay.DurationValue() < 0 {
		return newFieldError("Global.RenameRetryDelay", "不能为负数")
	}

	if len(c.Repositories) == 0 {
		return errors.New("至少需要配置一个 Repository")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if !repoNamePattern.MatchString(repo.Name) {
			return newFieldError(repoField(repo.Name, "Name"), "仅允许字母、数字、点、下划线与连字符，且不能以符号开头")
		}
		key := strings.ToLower(repo.Name)
		if _, exists := seenNames[key]; exists {
			return newRepositoryError(repo.Name, "Name", ErrDuplicateRepository, "重复")
		}
		seenNames[key] = struct{}{}

		layoutKey := strings.ToLower(strings.TrimSpace(repo.Layout))
		if layoutKey == "" {
			layoutKey = layout.DefaultKey()
		}
		if _, ok := layout.Resolve(layoutKey); !ok {
			return newRepositoryError(repo.Name, "Layout", ErrUnknownLayout, fmt.Sprintf("未注册布局: %s，可选 %s", layoutKey, strings.Join(layout.Keys(), "|")))
		}
		repo.Layout = layoutKey
	}

	return nil
}

// formatValidationError 把 validator 的第一条错误转换为 FieldError。
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			return newFieldError(field, fmt.Sprintf("不满足 %s=%s (当前值: %v)", e.Tag(), e.Param(), e.Value()))
		}
		return newFieldError(field, fmt.Sprintf("不满足 %s (当前值: %v)", e.Tag(), e.Value()))
	}
	return err
}
