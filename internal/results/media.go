package results

import (
	"encoding/json"
	"fmt"
	"strings"
)

const mediaSeparator = "|"

// ParseMediaURLs decodes a media_urls column. JSON arrays are tried first, then the
// pipe separated form. Empty entries are dropped.
func ParseMediaURLs(value any) []string {
	var raw string
	switch typed := value.(type) {
	case nil:
		return []string{}
	case string:
		raw = typed
	case []byte:
		raw = string(typed)
	default:
		raw = fmt.Sprint(typed)
	}
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	var decoded []any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		urls := make([]string, 0, len(decoded))
		for _, item := range decoded {
			text, ok := item.(string)
			if ok && strings.TrimSpace(text) != "" {
				urls = append(urls, text)
			}
		}
		return urls
	}

	parts := strings.Split(raw, mediaSeparator)
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
