package results

import (
	"strings"
)

var (
	systemPrefixes = []string{"_", "pg_", "information_schema", "sqlite_"}
	systemMarkers  = []string{"geography_columns", "geometry_columns", "raster_", "spatial_ref_sys"}
)

// AccessPolicy decides which tables the reader may expose.
type AccessPolicy struct {
	hidden map[string]struct{}
}

// NewAccessPolicy builds a policy hiding the given table names in addition to system tables.
func NewAccessPolicy(hidden []string) AccessPolicy {
	set := make(map[string]struct{}, len(hidden))
	for _, name := range hidden {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return AccessPolicy{hidden: set}
}

// ParseHiddenTables splits a comma separated list of table names.
func ParseHiddenTables(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// Allowed reports whether table may be listed or read.
func (p AccessPolicy) Allowed(table string) bool {
	if table == "" {
		return false
	}
	if _, hidden := p.hidden[table]; hidden {
		return false
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(table, prefix) {
			return false
		}
	}
	for _, marker := range systemMarkers {
		if strings.Contains(table, marker) {
			return false
		}
	}
	return true
}
