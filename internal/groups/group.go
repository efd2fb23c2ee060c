// Package groups reads and creates the Facebook group catalog kept in Airtable.
package groups

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/groupscope/dashboard/internal/airtable"
)

const (
	fieldGroupName   = "group_name"
	fieldGroupURL    = "group_url"
	fieldGroupID     = "group_id"
	fieldStatus      = "status"
	fieldLastScraped = "last_scraped"
	fieldThumbnail   = "group_thumbnail"
	fieldMember      = "Member"

	// StatusActive is assigned to newly created groups.
	StatusActive = "active"
	// StatusInactive marks groups excluded from scraping.
	StatusInactive = "inactive"
)

// Group is a catalog entry with its derived thumbnail and member count. All raw
// Airtable fields are preserved in the JSON form.
type Group struct {
	ID          string
	GroupName   string
	GroupURL    string
	GroupID     string
	Status      string
	LastScraped string
	Thumbnail   *string
	MemberCount *int
	Fields      map[string]any
}

// FromRecord maps an Airtable record onto a Group.
func FromRecord(record airtable.Record) Group {
	fields := record.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return Group{
		ID:          record.ID,
		GroupName:   stringField(fields, fieldGroupName),
		GroupURL:    stringField(fields, fieldGroupURL),
		GroupID:     stringField(fields, fieldGroupID),
		Status:      stringField(fields, fieldStatus),
		LastScraped: stringField(fields, fieldLastScraped),
		Thumbnail:   firstAttachmentURL(fields[fieldThumbnail]),
		MemberCount: ParseMemberCount(fields[fieldMember]),
		Fields:      fields,
	}
}

// MarshalJSON flattens the raw fields and adds id, thumbnail and member_count.
func (g Group) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(g.Fields)+3)
	for key, value := range g.Fields {
		payload[key] = value
	}
	payload["id"] = g.ID
	payload["thumbnail"] = g.Thumbnail
	payload["member_count"] = g.MemberCount
	return json.Marshal(payload)
}

// ParseMemberCount turns values such as "12,345" or 12345 into an integer. Values that
// do not parse yield nil.
func ParseMemberCount(value any) *int {
	var text string
	switch typed := value.(type) {
	case nil:
		return nil
	case float64:
		count := int(typed)
		return &count
	case int:
		return &typed
	case string:
		text = typed
	default:
		text = fmt.Sprint(typed)
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return nil
	}
	count, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &count
}

func firstAttachmentURL(value any) *string {
	attachments, ok := value.([]any)
	if !ok || len(attachments) == 0 {
		return nil
	}
	first, ok := attachments[0].(map[string]any)
	if !ok {
		return nil
	}
	url, ok := first["url"].(string)
	if !ok || url == "" {
		return nil
	}
	return &url
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return value
}
