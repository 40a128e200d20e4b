package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/roster"
)

const (
	exportPrefix      = "rosters"
	exportContentType = "application/json"
)

// RosterReader returns the current roster of a category.
type RosterReader interface {
	Roster(category model.Category) roster.Roster
}

// ExportDocument is the stored form of an exported roster.
type ExportDocument struct {
	ExportedAt time.Time     `json:"exported_at"`
	Roster     roster.Roster `json:"roster"`
}

// Export writes roster documents to object storage.
type Export struct {
	rosters RosterReader
	storage model.Storage
	logger  *logger.Logger
	now     func() time.Time
}

func NewExport(rosters RosterReader, storage model.Storage, logger *logger.Logger) *Export {
	return &Export{
		rosters: rosters,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportRoster uploads the current roster of category and returns its key.
func (e *Export) ExportRoster(ctx context.Context, category model.Category) (string, error) {
	c, ok := model.ParseCategory(string(category))
	if !ok {
		return "", model.NewValidationError("category", "must be one of: primary, secondary")
	}

	now := e.now().UTC()
	doc := ExportDocument{ExportedAt: now, Roster: e.rosters.Roster(c)}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal roster: %w", err)
	}

	key := path.Join(exportPrefix, string(c), now.Format("20060102T150405.000000000Z")+".json")
	if err := e.storage.Upload(ctx, key, exportContentType, data); err != nil {
		e.logger.Error("Export service: failed to upload roster",
			"key", key,
			"error", err.Error())
		return "", fmt.Errorf("%w: upload roster: %w", model.ErrStoreUnavailable, err)
	}

	e.logger.Info("Export service: roster exported",
		"key", key,
		"version", doc.Roster.Version,
		"signups", doc.Roster.Count)
	return key, nil
}

// FetchExport returns a previously exported roster document.
func (e *Export) FetchExport(ctx context.Context, key string) (ExportDocument, error) {
	if !strings.HasPrefix(key, exportPrefix+"/") || path.Clean(key) != key {
		return ExportDocument{}, model.NewValidationError("key", "is not an export key")
	}

	exists, err := e.storage.Exists(ctx, key)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("%w: stat export: %w", model.ErrStoreUnavailable, err)
	}
	if !exists {
		return ExportDocument{}, model.ErrNotFound
	}

	rc, err := e.storage.Download(ctx, key)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("%w: download export: %w", model.ErrStoreUnavailable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("%w: read export: %w", model.ErrStoreUnavailable, err)
	}

	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ExportDocument{}, fmt.Errorf("failed to decode export: %w", err)
	}
	return doc, nil
}
