package metadata

import (
	"sort"

	"github.com/any-hub/any-repo/internal/maven"
)

// PendingState 保存一次遍历中尚未落盘的事实，键为目录逻辑路径：
// group 目录 -> 插件，artifact 目录 -> 版本，version 目录 -> 快照文件名。
// 同一时刻只属于一个遍历，不做并发保护。
type PendingState struct {
	plugins  map[string][]maven.Plugin
	versions map[string][]string
	files    map[string][]string
}

// NewPendingState 创建空的桶集合。
func NewPendingState() *PendingState {
	return &PendingState{
		plugins:  make(map[string][]maven.Plugin),
		versions: make(map[string][]string),
		files:    make(map[string][]string),
	}
}

// AddPlugin 记录 group 目录下的插件，同一 artifactId 只保留第一条。
func (s *PendingState) AddPlugin(groupPath string, plugin maven.Plugin) {
	for _, existing := range s.plugins[groupPath] {
		if existing.ArtifactID == plugin.ArtifactID {
			return
		}
	}
	s.plugins[groupPath] = append(s.plugins[groupPath], plugin)
}

// AddVersion 记录 artifact 目录下出现的版本。
func (s *PendingState) AddVersion(artifactPath, version string) {
	s.versions[artifactPath] = appendUnique(s.versions[artifactPath], version)
}

// AddFile 记录快照版本目录下的文件名。
func (s *PendingState) AddFile(versionPath, name string) {
	s.files[versionPath] = appendUnique(s.files[versionPath], name)
}

// Plugins 返回按 prefix、artifactId 排序的插件列表。
func (s *PendingState) Plugins(groupPath string) []maven.Plugin {
	out := append([]maven.Plugin(nil), s.plugins[groupPath]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prefix != out[j].Prefix {
			return out[i].Prefix < out[j].Prefix
		}
		return out[i].ArtifactID < out[j].ArtifactID
	})
	return out
}

// Versions 返回 artifact 目录收集到的版本（未排序）。
func (s *PendingState) Versions(artifactPath string) []string {
	return append([]string(nil), s.versions[artifactPath]...)
}

// Files 返回按名称排序的快照文件。
func (s *PendingState) Files(versionPath string) []string {
	out := append([]string(nil), s.files[versionPath]...)
	sort.Strings(out)
	return out
}

func (s *PendingState) hasPlugins(path string) bool  { return len(s.plugins[path]) > 0 }
func (s *PendingState) hasVersions(path string) bool { return len(s.versions[path]) > 0 }
func (s *PendingState) hasFiles(path string) bool    { return len(s.files[path]) > 0 }

func (s *PendingState) clearPlugins(path string)  { delete(s.plugins, path) }
func (s *PendingState) clearVersions(path string) { delete(s.versions, path) }
func (s *PendingState) clearFiles(path string)    { delete(s.files, path) }

// Empty 报告所有桶是否都已被消费。
func (s *PendingState) Empty() bool {
	return len(s.plugins) == 0 && len(s.versions) == 0 && len(s.files) == 0
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
