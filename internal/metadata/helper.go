package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-repo/internal/checksum"
	"github.com/any-hub/any-repo/internal/maven"
	"github.com/any-hub/any-repo/internal/storage"
)

// GavResolver 把逻辑路径翻译为 Maven 坐标，由仓库布局提供。
type GavResolver interface {
	PathToGav(path string) (maven.Gav, bool)
}

// Options 控制 Helper 的可选依赖。
type Options struct {
	Logger logrus.FieldLogger
	// Clock 用于 lastUpdated，测试中可固定。
	Clock func() time.Time
}

var coordinatePattern = regexp.MustCompile(`^[\w.-]*$`)

// Helper 实现 storage.Visitor：遍历文件时填充桶，离开目录时按顺序执行处理器。
type Helper struct {
	storage    *storage.LocalStorage
	checksums  *checksum.Checksummer
	resolver   GavResolver
	logger     logrus.FieldLogger
	now        func() time.Time
	state      *PendingState
	processors []processor
	stats      RebuildStats
}

var _ storage.Visitor = (*Helper)(nil)

// NewHelper 创建一次遍历使用的 Helper。
func NewHelper(s *storage.LocalStorage, c *checksum.Checksummer, resolver GavResolver, opts Options) *Helper {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	h := &Helper{
		storage:   s,
		checksums: c,
		resolver:  resolver,
		logger:    logger,
		now:       clock,
		state:     NewPendingState(),
	}
	h.processors = []processor{
		versionDirectory{h},
		artifactDirectory{h},
		groupDirectory{h},
		obsoleteMetadata{h},
	}
	return h
}

// State 暴露桶，便于调用方在遍历结束后检查残留。
func (h *Helper) State() *PendingState {
	return h.state
}

// Stats 返回到目前为止的统计。
func (h *Helper) Stats() RebuildStats {
	return h.stats
}

// OnDirEnter 只做计数与调试日志。
func (h *Helper) OnDirEnter(_ context.Context, dir string) error {
	h.stats.Directories++
	h.logger.WithField("path", dir).Debug("metadata_dir_enter")
	return nil
}

// ProcessFile 维护文件的校验和，并把 POM 与快照文件登记到对应的桶。
func (h *Helper) ProcessFile(ctx context.Context, filePath string) error {
	h.stats.Files++

	obsolete, err := h.checksums.IsObsoleteSidecar(ctx, filePath)
	if err != nil {
		return err
	}
	if obsolete {
		if err := h.storage.ShredItem(ctx, filePath); err != nil && !errors.Is(err, storage.ErrItemNotFound) {
			return err
		}
		h.stats.SidecarsRemoved++
		h.logger.WithField("path", filePath).Debug("metadata_obsolete_sidecar_removed")
		return nil
	}
	if checksum.IsSidecar(filePath) {
		return nil
	}

	rewritten, err := h.checksums.Rebuild(ctx, filePath, false)
	if err != nil {
		return fmt.Errorf("rebuild checksums of %s: %w", filePath, err)
	}
	if rewritten {
		h.stats.ChecksumsRebuilt++
	}

	if path.Base(filePath) == maven.MetadataFileName {
		return nil
	}
	gav, ok := h.resolver.PathToGav(filePath)
	if !ok {
		h.stats.Skipped++
		h.logger.WithField("path", filePath).Debug("metadata_path_not_gav")
		return nil
	}

	if gav.Extension == "pom" && !gav.Hash && !gav.Signature {
		if err := h.processPOM(ctx, filePath, gav); err != nil {
			return err
		}
	}
	if strings.HasSuffix(gav.BaseVersion, "SNAPSHOT") && !gav.Hash && !gav.Signature {
		h.state.AddFile(path.Dir(filePath), path.Base(filePath))
	}
	return nil
}

// OnDirExit 执行第一个适用的处理器。
func (h *Helper) OnDirExit(ctx context.Context, dir string) error {
	for _, p := range h.processors {
		if !p.applies(dir) {
			continue
		}
		if err := p.handle(ctx, dir); err != nil {
			return fmt.Errorf("%s %s: %w", p.name(), dir, err)
		}
		return nil
	}
	return nil
}

func (h *Helper) processPOM(ctx context.Context, pomPath string, gav maven.Gav) error {
	groupID, artifactID, version := gav.GroupID, gav.ArtifactID, gav.BaseVersion

	pom, err := h.readPOM(ctx, pomPath)
	if err != nil {
		h.logger.WithError(err).WithField("path", pomPath).Warn("metadata_pom_unreadable")
	}
	if value := pom.EffectiveGroupID(); validCoordinate(value) {
		groupID = value
	}
	if validCoordinate(pom.ArtifactID) {
		artifactID = pom.ArtifactID
	}
	if value := pom.EffectiveVersion(); validCoordinate(value) {
		version = value
	}

	if err == nil && pom.EffectivePackaging() == maven.PackagingMavenPlugin {
		plugin := maven.Plugin{
			Prefix:     h.pluginPrefix(gav, artifactID),
			ArtifactID: artifactID,
			Name:       pom.Name,
		}
		if plugin.Name == "" {
			plugin.Name = artifactID
		}
		h.state.AddPlugin(maven.GroupPath(groupID), plugin)
	}
	h.state.AddVersion(maven.ArtifactPath(groupID, artifactID), version)
	return nil
}

func (h *Helper) readPOM(ctx context.Context, pomPath string) (maven.POM, error) {
	item, err := h.storage.RetrieveItem(ctx, pomPath)
	if err != nil {
		return maven.POM{}, err
	}
	file, ok := item.(*storage.FileItem)
	if !ok {
		return maven.POM{}, fmt.Errorf("%s is a %s: %w", pomPath, item.Kind(), storage.ErrUnsupportedOperation)
	}
	rc, err := file.Content.Open()
	if err != nil {
		return maven.POM{}, err
	}
	defer rc.Close()
	return maven.ParsePOM(rc)
}

// pluginPrefix 优先读取同目录主 jar 中的 goalPrefix，失败时按 artifactId 推导。
func (h *Helper) pluginPrefix(pomGav maven.Gav, artifactID string) string {
	jarGav := pomGav
	jarGav.Classifier = ""
	jarGav.Extension = "jar"
	jarPath, err := h.storage.Resolve(maven.ComposePath(jarGav))
	if err == nil {
		prefix, readErr := maven.ReadPluginPrefix(jarPath)
		if readErr == nil {
			return prefix
		}
		h.logger.WithError(readErr).WithField("path", jarPath).Debug("metadata_plugin_prefix_derived")
	}
	return maven.DerivePluginPrefix(artifactID)
}

func validCoordinate(value string) bool {
	return value != "" && coordinatePattern.MatchString(value)
}
