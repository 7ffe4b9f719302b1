package metadata

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/any-hub/any-repo/internal/maven"
	"github.com/any-hub/any-repo/internal/storage"
)

// processor 在离开目录时处理一种目录角色。
type processor interface {
	name() string
	applies(dir string) bool
	handle(ctx context.Context, dir string) error
}

// lastUpdated 不参与比较：内容一致时不应仅因时间变化而重写。
var metadataComparer = cmp.Options{
	cmpopts.IgnoreFields(maven.Metadata{}, "XMLName", "ModelVersion"),
	cmpopts.IgnoreFields(maven.Versioning{}, "LastUpdated"),
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.SortSlices(func(a, b maven.Plugin) bool {
		if a.Prefix != b.Prefix {
			return a.Prefix < b.Prefix
		}
		return a.ArtifactID < b.ArtifactID
	}),
	cmpopts.SortSlices(func(a, b maven.SnapshotVersion) bool { return a.Key() < b.Key() }),
	cmpopts.EquateEmpty(),
}

// equalMetadata 按值比较两个元数据文档，列表顺序无关。
func equalMetadata(a, b *maven.Metadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	return cmp.Equal(a, b, metadataComparer)
}

type versionDirectory struct{ h *Helper }

func (versionDirectory) name() string { return "version_directory" }

func (p versionDirectory) applies(dir string) bool { return p.h.state.hasFiles(dir) }

func (p versionDirectory) handle(ctx context.Context, dir string) error {
	defer p.h.state.clearFiles(dir)
	return p.h.reconcile(ctx, dir, func(existing *maven.Metadata) (*maven.Metadata, error) {
		return p.build(ctx, dir, existing)
	})
}

func (p versionDirectory) build(ctx context.Context, dir string, existing *maven.Metadata) (*maven.Metadata, error) {
	var (
		md       *maven.Metadata
		entries  = make(map[string]maven.SnapshotVersion)
		newest   maven.Gav
		hasStamp bool
	)

	for _, name := range p.h.state.Files(dir) {
		filePath := path.Join(dir, name)
		gav, ok := p.h.resolver.PathToGav(filePath)
		if !ok {
			continue
		}
		if md == nil {
			md = &maven.Metadata{GroupID: gav.GroupID, ArtifactID: gav.ArtifactID, Version: gav.BaseVersion}
		}

		updated := maven.SnapshotTimestampToUpdated(gav.SnapshotTimestamp)
		if updated == "" {
			item, err := p.h.storage.RetrieveItem(ctx, filePath)
			switch {
			case err == nil:
				updated = maven.FormatTimestamp(item.ModTime())
			case errors.Is(err, storage.ErrItemNotFound):
				continue
			default:
				return nil, err
			}
		}
		entry := maven.SnapshotVersion{
			Classifier: gav.Classifier,
			Extension:  gav.Extension,
			Value:      gav.Version,
			Updated:    updated,
		}
		entries[entry.Key()] = entry

		if gav.SnapshotTimestamp != "" && (!hasStamp || newerBuild(gav, newest)) {
			newest = gav
			hasStamp = true
		}
	}
	if md == nil {
		return nil, nil
	}

	if existing != nil && existing.Versioning != nil {
		for _, prior := range existing.Versioning.SnapshotVersions {
			current, ok := entries[prior.Key()]
			if ok && (current.Classifier != prior.Classifier || current.Extension != prior.Extension) {
				entries[prior.Key()] = prior
			}
		}
	}

	versioning := &maven.Versioning{}
	if hasStamp {
		versioning.Snapshot = &maven.Snapshot{
			Timestamp:   newest.SnapshotTimestamp,
			BuildNumber: newest.SnapshotBuildNumber,
		}
	} else {
		versioning.Snapshot = &maven.Snapshot{LocalCopy: true}
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := entries[key]
		versioning.SnapshotVersions = append(versioning.SnapshotVersions, entry)
		if entry.Updated > versioning.LastUpdated {
			versioning.LastUpdated = entry.Updated
		}
	}
	if versioning.LastUpdated == "" {
		versioning.LastUpdated = maven.FormatTimestamp(p.h.now())
	}
	md.Versioning = versioning
	return md, nil
}

func newerBuild(candidate, current maven.Gav) bool {
	if candidate.SnapshotTimestamp != current.SnapshotTimestamp {
		return candidate.SnapshotTimestamp > current.SnapshotTimestamp
	}
	return candidate.SnapshotBuildNumber > current.SnapshotBuildNumber
}

type artifactDirectory struct{ h *Helper }

func (artifactDirectory) name() string { return "artifact_directory" }

func (p artifactDirectory) applies(dir string) bool { return p.h.state.hasVersions(dir) }

func (p artifactDirectory) handle(ctx context.Context, dir string) error {
	defer p.h.state.clearVersions(dir)
	return p.h.reconcile(ctx, dir, func(*maven.Metadata) (*maven.Metadata, error) {
		versions := maven.SortVersions(p.h.state.Versions(dir))
		latest, release := maven.LatestAndRelease(versions)
		groupDir, artifactID := path.Split(dir)
		return &maven.Metadata{
			GroupID:    strings.ReplaceAll(strings.Trim(groupDir, "/"), "/", "."),
			ArtifactID: artifactID,
			Versioning: &maven.Versioning{
				Latest:      latest,
				Release:     release,
				Versions:    versions,
				LastUpdated: maven.FormatTimestamp(p.h.now()),
			},
		}, nil
	})
}

type groupDirectory struct{ h *Helper }

func (groupDirectory) name() string { return "group_directory" }

func (p groupDirectory) applies(dir string) bool { return p.h.state.hasPlugins(dir) }

func (p groupDirectory) handle(ctx context.Context, dir string) error {
	defer p.h.state.clearPlugins(dir)
	return p.h.reconcile(ctx, dir, func(*maven.Metadata) (*maven.Metadata, error) {
		return &maven.Metadata{Plugins: p.h.state.Plugins(dir)}, nil
	})
}

// obsoleteMetadata 删除没有任何桶为其作证的元数据。
type obsoleteMetadata struct{ h *Helper }

func (obsoleteMetadata) name() string { return "obsolete_metadata" }

func (obsoleteMetadata) applies(string) bool { return true }

func (p obsoleteMetadata) handle(ctx context.Context, dir string) error {
	mdPath := path.Join(dir, maven.MetadataFileName)
	exists, err := p.h.storage.ContainsItem(ctx, mdPath)
	if err != nil || !exists {
		return err
	}
	if err := p.h.removeMetadata(ctx, mdPath); err != nil {
		return err
	}
	p.h.stats.MetadataRemoved++
	p.h.logger.WithField("path", mdPath).Info("metadata_obsolete_removed")
	return nil
}

// reconcile 读取现有元数据，与候选比较后决定跳过、刷新校验和或重写。
func (h *Helper) reconcile(ctx context.Context, dir string, build func(existing *maven.Metadata) (*maven.Metadata, error)) error {
	mdPath := path.Join(dir, maven.MetadataFileName)
	existing, present, err := h.readMetadata(ctx, mdPath)
	if err != nil {
		return err
	}
	candidate, err := build(existing)
	if err != nil {
		return err
	}
	if candidate == nil {
		return nil
	}

	if equalMetadata(existing, candidate) {
		rewritten, err := h.checksums.Rebuild(ctx, mdPath, false)
		if err != nil {
			return err
		}
		if rewritten {
			h.stats.ChecksumsRebuilt++
		}
		return nil
	}

	if present {
		if err := h.removeMetadata(ctx, mdPath); err != nil {
			return err
		}
	}
	body, err := candidate.Bytes()
	if err != nil {
		return err
	}
	item := &storage.FileItem{
		Path:     mdPath,
		Content:  storage.BytesLocator(body),
		Length:   int64(len(body)),
		Modified: h.now(),
	}
	if err := h.storage.StoreItem(ctx, item); err != nil {
		return err
	}
	if _, err := h.checksums.Rebuild(ctx, mdPath, true); err != nil {
		return err
	}
	h.stats.MetadataWritten++
	h.logger.WithField("path", mdPath).Debug("metadata_written")
	return nil
}

// readMetadata 返回解析结果与文件是否存在；无法解析的文件视为不存在。
func (h *Helper) readMetadata(ctx context.Context, mdPath string) (*maven.Metadata, bool, error) {
	item, err := h.storage.RetrieveItem(ctx, mdPath)
	if errors.Is(err, storage.ErrItemNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	file, ok := item.(*storage.FileItem)
	if !ok {
		return nil, true, nil
	}
	rc, err := file.Content.Open()
	if err != nil {
		return nil, true, err
	}
	defer rc.Close()

	md, err := maven.ReadMetadata(rc)
	if errors.Is(err, maven.ErrCorruptMetadata) {
		h.logger.WithError(err).WithField("path", mdPath).Warn("metadata_corrupt")
		return nil, true, nil
	}
	if err != nil {
		return nil, true, err
	}
	return md, true, nil
}

func (h *Helper) removeMetadata(ctx context.Context, mdPath string) error {
	if err := h.storage.ShredItem(ctx, mdPath); err != nil && !errors.Is(err, storage.ErrItemNotFound) {
		return err
	}
	return h.checksums.RemoveSidecars(ctx, mdPath)
}
