package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/any-repo/internal/layout"
	"github.com/any-hub/any-repo/internal/storage"
)

// EnvConfigPath 覆盖默认配置文件路径；命令行 --config 优先级更高。
const EnvConfigPath = "ANY_REPO_CONFIG"

// DefaultPath 返回未显式指定时使用的配置路径。
func DefaultPath() string {
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env
	}
	return "config.toml"
}

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectRepositoryLevelPorts(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Repositories {
		applyRepositoryDefaults(&cfg.Repositories[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析存储目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	if err := cfg.resolveRoots(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("CopyBufferSize", storage.DefaultCopyBufferSize)
	v.SetDefault("RenameRetries", 0)
	v.SetDefault("RenameRetryDelay", "0s")
	v.SetDefault("AttributeBackend", AttributeBackendBadger)
	v.SetDefault("MetricsEnabled", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.CopyBufferSize == 0 {
		g.CopyBufferSize = storage.DefaultCopyBufferSize
	}
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
	g.AttributeBackend = strings.ToLower(strings.TrimSpace(g.AttributeBackend))
	if g.AttributeBackend == "" {
		g.AttributeBackend = AttributeBackendBadger
	}
}

func applyRepositoryDefaults(r *RepositoryConfig) {
	r.Name = strings.TrimSpace(r.Name)
	r.Root = strings.TrimSpace(r.Root)
	if trimmed := strings.TrimSpace(r.Layout); trimmed == "" {
		r.Layout = layout.DefaultKey()
	} else {
		r.Layout = strings.ToLower(trimmed)
	}
}

// resolveRoots 将仓库根目录转换为绝对路径，未配置时落在 StoragePath/<Name>。
// 两个仓库不能共用根目录，也不能互相嵌套：外层仓库的重建与删除会波及内层仓库。
func (c *Config) resolveRoots() error {
	seen := make(map[string]string, len(c.Repositories))
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		root := repo.Root
		if root == "" {
			root = filepath.Join(c.Global.StoragePath, repo.Name)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("%s: %w", repoField(repo.Name, "Root"), err)
		}
		if other, exists := seen[abs]; exists {
			return newRepositoryError(repo.Name, "Root", ErrSharedRoot, fmt.Sprintf("与仓库 %s 使用相同目录", other))
		}
		for otherRoot, other := range seen {
			if nestedRoot(otherRoot, abs) || nestedRoot(abs, otherRoot) {
				return newRepositoryError(repo.Name, "Root", ErrNestedRoot, fmt.Sprintf("与仓库 %s 的目录互相嵌套", other))
			}
		}
		seen[abs] = repo.Name
		repo.Root = abs
	}
	return nil
}

// nestedRoot 判断 child 是否位于 parent 之下（不含相等）。
func nestedRoot(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// rejectRepositoryLevelPorts 拒绝仓库级端口配置，所有仓库共用全局 ListenPort。
func rejectRepositoryLevelPorts(v *viper.Viper) error {
	raw := v.Get("Repository")
	repos, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	for idx, entry := range repos {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name := fmt.Sprintf("#%d", idx)
		for key, value := range m {
			if rawName, ok := value.(string); ok && strings.EqualFold(key, "Name") && rawName != "" {
				name = rawName
			}
		}
		for key := range m {
			if strings.EqualFold(key, "Port") || strings.EqualFold(key, "ListenPort") {
				return newFieldError(repoField(name, key), "仓库不支持独立端口，请使用全局 ListenPort")
			}
		}
	}

	return nil
}
