package config

import (
	"fmt"
	"path/filepath"

	"github.com/any-hub/any-repo/internal/layout"
	"github.com/any-hub/any-repo/internal/storage"
)

// RepositoryRuntime 将仓库配置与布局元数据合并，方便运行时快速取用。
type RepositoryRuntime struct {
	Config  RepositoryConfig
	Layout  layout.Metadata
	Storage storage.Options
	// AttributeDir 是 badger 后端的数据目录，位于仓库保留区内。
	AttributeDir string
}

// BuildRepositoryRuntime 根据全局与仓库配置创建运行时描述。
func BuildRepositoryRuntime(global GlobalConfig, repo RepositoryConfig) (RepositoryRuntime, error) {
	meta, ok := layout.Resolve(repo.Layout)
	if !ok {
		return RepositoryRuntime{}, newRepositoryError(repo.Name, "Layout", ErrUnknownLayout, fmt.Sprintf("未注册布局: %s", repo.Layout))
	}
	return RepositoryRuntime{
		Config: repo,
		Layout: meta,
		Storage: storage.Options{
			CopyBufferSize:   global.CopyBufferSize,
			RenameRetries:    global.RenameRetries,
			RenameRetryDelay: global.RenameRetryDelay.DurationValue(),
		},
		AttributeDir: filepath.Join(repo.Root, storage.ReservedDir, "badger"),
	}, nil
}
