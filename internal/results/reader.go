// Package results exposes scraped posts stored in arbitrary relational tables.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/groupscope/dashboard/internal/pagination"
	"github.com/groupscope/dashboard/internal/textsearch"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultTable     = "posts"
	DefaultLimit     = 100
	MaxLimit         = 1000
	DefaultSearchCap = 1000

	columnTime      = "time"
	columnMessage   = "message"
	columnAuthor    = "author"
	columnGroupName = "group_name"
	columnMediaURLs = "media_urls"
	fieldMedia      = "media"

	pgUndefinedTable = "42P01"
)

var (
	// ErrAccessDenied is returned for hidden and system tables.
	ErrAccessDenied = errors.New("results: access denied to table")
	// ErrTableNotFound is returned when the table does not exist in the store.
	ErrTableNotFound = errors.New("results: table not found")

	errMissingDatabase = errors.New("results: database handle is required")
)

// ReaderConfig wires a Reader.
type ReaderConfig struct {
	Database  *gorm.DB
	Policy    AccessPolicy
	SearchCap int
	Logger    *zap.Logger
}

// Reader performs read-only queries against the results store.
type Reader struct {
	db        *gorm.DB
	policy    AccessPolicy
	searchCap int
	logger    *zap.Logger
}

// NewReader validates cfg and builds a Reader.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	searchCap := cfg.SearchCap
	if searchCap <= 0 {
		searchCap = DefaultSearchCap
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		db:        cfg.Database,
		policy:    cfg.Policy,
		searchCap: searchCap,
		logger:    logger,
	}, nil
}

// Post is one row of a results table with its decoded media list under "media".
type Post map[string]any

// Query selects a page of a results table.
type Query struct {
	Table   string
	Page    int
	Limit   int
	Keyword string
}

// Page is the outcome of a posts query.
type Page struct {
	Posts      []Post                `json:"posts"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Tables lists the readable tables in name order.
func (r *Reader) Tables(ctx context.Context) ([]string, error) {
	names, err := r.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("results: list tables: %w", err)
	}
	visible := make([]string, 0, len(names))
	for _, name := range names {
		if r.policy.Allowed(name) {
			visible = append(visible, name)
		}
	}
	sort.Strings(visible)
	return visible, nil
}

// Posts reads a page of posts. With a keyword, every match up to the search cap is
// returned instead of the requested page and the total counts all matches.
func (r *Reader) Posts(ctx context.Context, query Query) (Page, error) {
	table := strings.TrimSpace(query.Table)
	if table == "" {
		table = DefaultTable
	}
	if !r.policy.Allowed(table) {
		return Page{}, ErrAccessDenied
	}
	if !r.db.WithContext(ctx).Migrator().HasTable(table) {
		return Page{}, ErrTableNotFound
	}

	request := pagination.Normalize(query.Page, query.Limit, DefaultLimit, MaxLimit)
	matcher := textsearch.NewMatcher(query.Keyword)
	if matcher.Empty() {
		return r.page(ctx, table, request)
	}
	return r.search(ctx, table, request, matcher)
}

func (r *Reader) page(ctx context.Context, table string, request pagination.Request) (Page, error) {
	var total int64
	if err := r.from(ctx, table).Count(&total).Error; err != nil {
		return Page{}, r.classify(table, err)
	}

	rows := make([]map[string]any, 0, request.Limit)
	err := r.from(ctx, table).
		Order(newestFirst()).
		Limit(request.Limit).
		Offset(request.Offset()).
		Find(&rows).Error
	if err != nil {
		return Page{}, r.classify(table, err)
	}

	posts := make([]Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toPost(row))
	}
	return Page{Posts: posts, Pagination: pagination.New(request, int(total))}, nil
}

func (r *Reader) search(ctx context.Context, table string, request pagination.Request, matcher textsearch.Matcher) (Page, error) {
	rows, err := r.from(ctx, table).Order(newestFirst()).Rows()
	if err != nil {
		return Page{}, r.classify(table, err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	total := 0
	for rows.Next() {
		var row map[string]any
		if err := r.db.ScanRows(rows, &row); err != nil {
			return Page{}, r.classify(table, err)
		}
		if !matcher.Match(textField(row, columnMessage), textField(row, columnAuthor), textField(row, columnGroupName)) {
			continue
		}
		total++
		if len(posts) < r.searchCap {
			posts = append(posts, toPost(row))
		}
	}
	if err := rows.Err(); err != nil {
		return Page{}, r.classify(table, err)
	}

	r.logger.Debug("results keyword search",
		zap.String("table", table),
		zap.Strings("terms", matcher.Terms()),
		zap.Int("matches", total),
	)
	return Page{Posts: posts, Pagination: pagination.New(request, total)}, nil
}

func (r *Reader) from(ctx context.Context, table string) *gorm.DB {
	return r.db.WithContext(ctx).Table("?", clause.Table{Name: table})
}

func (r *Reader) classify(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return ErrTableNotFound
	}
	if strings.Contains(err.Error(), "no such table") {
		return ErrTableNotFound
	}
	return fmt.Errorf("results: query %s: %w", table, err)
}

func newestFirst() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: columnTime}, Desc: true}
}

func toPost(row map[string]any) Post {
	post := make(Post, len(row)+1)
	for key, value := range row {
		if raw, ok := value.([]byte); ok {
			value = string(raw)
		}
		post[key] = value
	}
	post[fieldMedia] = ParseMediaURLs(post[columnMediaURLs])
	return post
}

func textField(row map[string]any, column string) string {
	switch value := row[column].(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}
