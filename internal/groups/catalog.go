package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/groupscope/dashboard/internal/airtable"
	"github.com/groupscope/dashboard/internal/pagination"
	"go.uber.org/zap"
)

const (
	// DefaultView is used when a request names no view.
	DefaultView  = "Grid view"
	DefaultLimit = 100
	MaxLimit     = 1000
)

var errMissingSource = errors.New("groups: record source required")

// RecordSource is the external tabular store holding the catalog.
type RecordSource interface {
	ListRecords(ctx context.Context, view string) ([]airtable.Record, error)
	CreateRecord(ctx context.Context, fields map[string]any) (airtable.Record, error)
}

// CatalogConfig wires a Catalog.
type CatalogConfig struct {
	Source      RecordSource
	Cache       Cache
	DefaultView string
	Logger      *zap.Logger
}

// Catalog pages through groups and creates new ones. Full view snapshots are cached
// because the store only pages by opaque tokens; writes invalidate the cache.
type Catalog struct {
	source      RecordSource
	cache       Cache
	defaultView string
	logger      *zap.Logger
}

// NewCatalog validates cfg and builds a Catalog.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NopCache{}
	}
	defaultView := strings.TrimSpace(cfg.DefaultView)
	if defaultView == "" {
		defaultView = DefaultView
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		source:      cfg.Source,
		cache:       cache,
		defaultView: defaultView,
		logger:      logger,
	}, nil
}

// Query selects a page of a view.
type Query struct {
	Page  int
	Limit int
	View  string
}

// Result is one page of groups.
type Result struct {
	Groups     []Group               `json:"groups"`
	Pagination pagination.Pagination `json:"pagination"`
}

// List returns the requested page of the view.
func (c *Catalog) List(ctx context.Context, query Query) (Result, error) {
	request := pagination.Normalize(query.Page, query.Limit, DefaultLimit, MaxLimit)
	view := c.resolveView(query.View)

	records, err := c.records(ctx, view)
	if err != nil {
		return Result{}, err
	}

	pageRecords, meta := pagination.Slice(records, request)
	groups := make([]Group, 0, len(pageRecords))
	for _, record := range pageRecords {
		groups = append(groups, FromRecord(record))
	}
	return Result{Groups: groups, Pagination: meta}, nil
}

// CreateRequest holds the user supplied fields of a new group.
type CreateRequest struct {
	GroupName string
	GroupURL  string
}

// Create inserts an active group and returns its record id.
func (c *Catalog) Create(ctx context.Context, request CreateRequest) (string, error) {
	record, err := c.source.CreateRecord(ctx, map[string]any{
		fieldGroupName: request.GroupName,
		fieldGroupURL:  request.GroupURL,
		fieldStatus:    StatusActive,
	})
	if err != nil {
		return "", fmt.Errorf("groups: create record: %w", err)
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn("group cache invalidation failed", zap.Error(err))
	}
	return record.ID, nil
}

func (c *Catalog) resolveView(view string) string {
	view = strings.TrimSpace(view)
	switch {
	case view == "":
		return c.defaultView
	case view == airtable.AllRecordsView:
		return ""
	default:
		return view
	}
}

func (c *Catalog) records(ctx context.Context, view string) ([]airtable.Record, error) {
	cached, ok, err := c.cache.Load(ctx, view)
	if err != nil {
		c.logger.Warn("group cache read failed", zap.String("view", view), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	records, err := c.source.ListRecords(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("groups: list records: %w", err)
	}
	if err := c.cache.Store(ctx, view, records); err != nil {
		c.logger.Warn("group cache write failed", zap.String("view", view), zap.Error(err))
	}
	return records, nil
}
