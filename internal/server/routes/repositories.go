package routes

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-repo/internal/layout"
	"github.com/any-hub/any-repo/internal/metadata"
	"github.com/any-hub/any-repo/internal/repository"
	"github.com/any-hub/any-repo/internal/server"
	"github.com/any-hub/any-repo/internal/storage"
)

// RegisterRepositoryRoutes 暴露 /-/repositories 与 /-/layouts 诊断接口，并允许手动触发元数据重建。
func RegisterRepositoryRoutes(app *fiber.App, registry *repository.Registry, logger logrus.FieldLogger) {
	if app == nil || registry == nil {
		return
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	app.Get("/-/layouts", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"layouts": encodeLayouts(layout.List())})
	})

	app.Get("/-/repositories", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"repositories": encodeRepositories(registry.List())})
	})

	app.Get("/-/repositories/:name", func(c fiber.Ctx) error {
		repo, ok := registry.Lookup(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "repository_not_found"})
		}
		return c.JSON(encodeRepository(repo))
	})

	app.Post("/-/repositories/:name/rebuild", func(c fiber.Ctx) error {
		repo, ok := registry.Lookup(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "repository_not_found"})
		}
		target := strings.TrimSpace(c.Query("path", "/"))

		stats, err := repo.Rebuild(c.Context(), target)
		switch {
		case err == nil:
			return c.JSON(stats)
		case errors.Is(err, repository.ErrRebuildInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "rebuild_in_progress"})
		case errors.Is(err, storage.ErrItemNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "path_not_found"})
		case errors.Is(err, storage.ErrPathEscape):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_path"})
		default:
			logger.WithFields(logrus.Fields{
				"action":     "rebuild",
				"repository": repo.Name,
				"path":       target,
				"request_id": server.RequestID(c),
			}).WithError(err).Error("rebuild request failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "rebuild_failed",
				"stats": stats,
			})
		}
	})
}

type layoutPayload struct {
	Key          string          `json:"key"`
	Description  string          `json:"description"`
	Maturity     layout.Maturity `json:"maturity"`
	MetadataFile string          `json:"metadata_file,omitempty"`
}

type repositoryPayload struct {
	Name        string                 `json:"name"`
	Layout      string                 `json:"layout"`
	Root        string                 `json:"root"`
	Rebuilding  bool                   `json:"rebuilding"`
	LastRebuild *metadata.RebuildStats `json:"last_rebuild,omitempty"`
}

func encodeLayouts(items []layout.Metadata) []layoutPayload {
	if len(items) == 0 {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	result := make([]layoutPayload, 0, len(items))
	for _, meta := range items {
		result = append(result, layoutPayload{
			Key:          meta.Key,
			Description:  meta.Description,
			Maturity:     meta.Maturity,
			MetadataFile: meta.MetadataFile,
		})
	}
	return result
}

func encodeRepositories(repos []*repository.Repository) []repositoryPayload {
	if len(repos) == 0 {
		return nil
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Name < repos[j].Name
	})
	result := make([]repositoryPayload, 0, len(repos))
	for _, repo := range repos {
		result = append(result, encodeRepository(repo))
	}
	return result
}

func encodeRepository(repo *repository.Repository) repositoryPayload {
	payload := repositoryPayload{
		Name:       repo.Name,
		Layout:     repo.Layout.Key,
		Root:       repo.Root,
		Rebuilding: repo.Rebuilding(),
	}
	if stats, ok := repo.LastRebuild(); ok {
		payload.LastRebuild = &stats
	}
	return payload
}
