package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 属性库后端。
const (
	AttributeBackendBadger = "badger"
	AttributeBackendFile   = "file"
)

// GlobalConfig 描述全局运行时行为，所有仓库共享同一份参数。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort" validate:"gte=1,lte=65535"`
	LogLevel         string   `mapstructure:"LogLevel" validate:"required,oneof=trace debug info warn warning error fatal panic"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize" validate:"gte=0"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups" validate:"gte=0"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	StoragePath      string   `mapstructure:"StoragePath" validate:"required"`
	CopyBufferSize   int      `mapstructure:"CopyBufferSize" validate:"gte=512,lte=16777216"`
	RenameRetries    int      `mapstructure:"RenameRetries" validate:"gte=0,lte=100"`
	RenameRetryDelay Duration `mapstructure:"RenameRetryDelay"`
	AttributeBackend string   `mapstructure:"AttributeBackend" validate:"oneof=badger file"`
	MetricsEnabled   bool     `mapstructure:"MetricsEnabled"`
}

// RepositoryConfig 描述单个本地仓库。
type RepositoryConfig struct {
	Name   string `mapstructure:"Name" validate:"required,max=64"`
	Root   string `mapstructure:"Root"`
	Layout string `mapstructure:"Layout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global       GlobalConfig       `mapstructure:",squash"`
	Repositories []RepositoryConfig `mapstructure:"Repository" validate:"dive"`
}

// RepositoryNames 返回全部仓库名，供启动日志使用。
func RepositoryNames(repos []RepositoryConfig) []string {
	if len(repos) == 0 {
		return nil
	}
	result := make([]string, len(repos))
	for i, repo := range repos {
		result[i] = fmt.Sprintf("%s:%s", repo.Name, repo.Layout)
	}
	return result
}
