package metadata

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-repo/internal/checksum"
	"github.com/any-hub/any-repo/internal/logging"
	"github.com/any-hub/any-repo/internal/storage"
)

// RebuildStats 汇总一次遍历的结果。
type RebuildStats struct {
	CrawlID          string        `json:"crawl_id"`
	Path             string        `json:"path"`
	Directories      int           `json:"directories"`
	Files            int           `json:"files"`
	ChecksumsRebuilt int           `json:"checksums_rebuilt"`
	SidecarsRemoved  int           `json:"sidecars_removed"`
	MetadataWritten  int           `json:"metadata_written"`
	MetadataRemoved  int           `json:"metadata_removed"`
	Skipped          int           `json:"skipped"`
	Duration         time.Duration `json:"duration"`
}

// Crawl 描述一次重建需要的协作方。
type Crawl struct {
	Repository string
	Storage    *storage.LocalStorage
	Checksums  *checksum.Checksummer
	Resolver   GavResolver
	Logger     logrus.FieldLogger
	Clock      func() time.Time
}

// Rebuild 以后序遍历 path 子树，修复校验和并重建各级 maven-metadata.xml。
func (c Crawl) Rebuild(ctx context.Context, path string) (RebuildStats, error) {
	crawlID := uuid.NewString()
	path = storage.NormalizePath(path)

	logger := c.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logging.CrawlFields(c.Repository, crawlID, path))

	helper := NewHelper(c.Storage, c.Checksums, c.Resolver, Options{Logger: logger, Clock: c.Clock})
	started := time.Now()
	logger.Info("metadata_rebuild_start")

	err := c.Storage.Walk(ctx, path, helper)

	stats := helper.Stats()
	stats.CrawlID = crawlID
	stats.Path = path
	stats.Duration = time.Since(started)
	fields := logrus.Fields{
		"directories":       stats.Directories,
		"files":             stats.Files,
		"checksums_rebuilt": stats.ChecksumsRebuilt,
		"metadata_written":  stats.MetadataWritten,
		"metadata_removed":  stats.MetadataRemoved,
		"elapsed_ms":        stats.Duration.Milliseconds(),
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("metadata_rebuild_failed")
		return stats, err
	}
	logger.WithFields(fields).Info("metadata_rebuild_complete")
	return stats, nil
}
