package results

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openResultsStore(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "results.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, time INTEGER, message TEXT, author TEXT, group_name TEXT, media_urls TEXT)`,
		`CREATE TABLE "phòng" (id INTEGER PRIMARY KEY, time INTEGER, message TEXT, author TEXT, group_name TEXT, media_urls TEXT)`,
		`CREATE TABLE _staging (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE spatial_ref_sys (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE secrets (id INTEGER PRIMARY KEY, time INTEGER)`,
	}
	for _, statement := range statements {
		if err := database.Exec(statement).Error; err != nil {
			testContext.Fatalf("failed to prepare schema: %v", err)
		}
	}
	return database
}

func seedPosts(testContext *testing.T, database *gorm.DB, table string, rows [][]any) {
	testContext.Helper()
	insert := fmt.Sprintf(`INSERT INTO %q (time, message, author, group_name, media_urls) VALUES (?, ?, ?, ?, ?)`, table)
	for _, row := range rows {
		if err := database.Exec(insert, row...).Error; err != nil {
			testContext.Fatalf("failed to seed %s: %v", table, err)
		}
	}
}

func newTestReader(testContext *testing.T, database *gorm.DB, searchCap int) *Reader {
	testContext.Helper()
	reader, err := NewReader(ReaderConfig{
		Database:  database,
		Policy:    NewAccessPolicy([]string{"secrets"}),
		SearchCap: searchCap,
	})
	if err != nil {
		testContext.Fatalf("failed to build reader: %v", err)
	}
	return reader
}

func TestTablesHidesSystemAndConfiguredTables(testContext *testing.T) {
	reader := newTestReader(testContext, openResultsStore(testContext), 0)

	tables, err := reader.Tables(context.Background())
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"phòng", "posts"}
	if !reflect.DeepEqual(tables, expected) {
		testContext.Fatalf("expected %v, got %v", expected, tables)
	}
}

func TestPostsPagesNewestFirst(testContext *testing.T) {
	database := openResultsStore(testContext)
	rows := make([][]any, 0, 25)
	for index := 1; index <= 25; index++ {
		rows = append(rows, []any{1700000000 + index, fmt.Sprintf("post %d", index), "author", "group", nil})
	}
	seedPosts(testContext, database, "posts", rows)
	reader := newTestReader(testContext, database, 0)

	page, err := reader.Posts(context.Background(), Query{Page: 2, Limit: 10})
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if len(page.Posts) != 10 {
		testContext.Fatalf("expected 10 posts, got %d", len(page.Posts))
	}
	if page.Posts[0]["message"] != "post 15" || page.Posts[9]["message"] != "post 6" {
		testContext.Fatalf("unexpected page window: first=%v last=%v", page.Posts[0]["message"], page.Posts[9]["message"])
	}
	meta := page.Pagination
	if meta.Total != 25 || meta.TotalPages != 3 || !meta.HasNext || !meta.HasPrev {
		testContext.Fatalf("unexpected pagination: %+v", meta)
	}
	media, ok := page.Posts[0]["media"].([]string)
	if !ok || len(media) != 0 {
		testContext.Fatalf("expected empty media list, got %#v", page.Posts[0]["media"])
	}
}

func TestPostsKeywordSearchCombinesTermsAcrossFields(testContext *testing.T) {
	database := openResultsStore(testContext)
	seedPosts(testContext, database, "posts", [][]any{
		{1, "Cho thuê phòng trọ giá rẻ", "Lan", "Nhà trọ Quận 1", `["https://cdn/a.jpg","https://cdn/b.jpg"]`},
		{2, "Phòng đẹp gần chợ", "Minh", "Quận 3", "https://cdn/c.jpg|https://cdn/d.jpg"},
		{3, "Bán xe máy", "Lan", "Chợ tốt", nil},
		{4, "phong tro Quan 1", "Hoa", "Khác", nil},
	})
	reader := newTestReader(testContext, database, 0)

	page, err := reader.Posts(context.Background(), Query{Keyword: "PHÒNG & quận 1"})
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if page.Pagination.Total != 2 || len(page.Posts) != 2 {
		testContext.Fatalf("expected two matches, got total=%d posts=%d", page.Pagination.Total, len(page.Posts))
	}
	if page.Posts[0]["message"] != "phong tro Quan 1" {
		testContext.Fatalf("expected newest match first, got %v", page.Posts[0]["message"])
	}
	media := page.Posts[1]["media"].([]string)
	if !reflect.DeepEqual(media, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}) {
		testContext.Fatalf("unexpected media list %v", media)
	}
}

func TestPostsKeywordSearchRespectsCap(testContext *testing.T) {
	database := openResultsStore(testContext)
	rows := make([][]any, 0, 5)
	for index := 1; index <= 5; index++ {
		rows = append(rows, []any{index, "đất nền", "agent", "group", nil})
	}
	seedPosts(testContext, database, "posts", rows)
	reader := newTestReader(testContext, database, 3)

	page, err := reader.Posts(context.Background(), Query{Keyword: "dat nen", Limit: 2})
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if len(page.Posts) != 3 {
		testContext.Fatalf("expected cap of 3 posts, got %d", len(page.Posts))
	}
	if page.Pagination.Total != 5 {
		testContext.Fatalf("expected total of all matches, got %d", page.Pagination.Total)
	}
}

func TestPostsRejectsHiddenAndSystemTables(testContext *testing.T) {
	reader := newTestReader(testContext, openResultsStore(testContext), 0)

	for _, table := range []string{"secrets", "_staging", "pg_class", "spatial_ref_sys"} {
		_, err := reader.Posts(context.Background(), Query{Table: table})
		if !errors.Is(err, ErrAccessDenied) {
			testContext.Fatalf("expected access denied for %s, got %v", table, err)
		}
	}
}

func TestPostsReportsMissingTable(testContext *testing.T) {
	reader := newTestReader(testContext, openResultsStore(testContext), 0)

	_, err := reader.Posts(context.Background(), Query{Table: "khách"})
	if !errors.Is(err, ErrTableNotFound) {
		testContext.Fatalf("expected table not found, got %v", err)
	}
}

func TestPostsReadsUnicodeTableNames(testContext *testing.T) {
	database := openResultsStore(testContext)
	seedPosts(testContext, database, "phòng", [][]any{{1, "hello", "a", "g", nil}})
	reader := newTestReader(testContext, database, 0)

	page, err := reader.Posts(context.Background(), Query{Table: "phòng"})
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if page.Pagination.Total != 1 || page.Posts[0]["message"] != "hello" {
		testContext.Fatalf("unexpected page %+v", page)
	}
}

func TestParseMediaURLs(testContext *testing.T) {
	cases := []struct {
		name     string
		value    any
		expected []string
	}{
		{name: "nil", value: nil, expected: []string{}},
		{name: "json array", value: `["a", "", "b"]`, expected: []string{"a", "b"}},
		{name: "pipe list", value: "a| b ||c", expected: []string{"a", "b", "c"}},
		{name: "single url", value: "https://cdn/x.jpg", expected: []string{"https://cdn/x.jpg"}},
		{name: "blank", value: "  ", expected: []string{}},
	}
	for _, testCase := range cases {
		testContext.Run(testCase.name, func(t *testing.T) {
			actual := ParseMediaURLs(testCase.value)
			if !reflect.DeepEqual(actual, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, actual)
			}
		})
	}
}
