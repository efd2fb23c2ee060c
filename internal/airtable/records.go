package airtable

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Record is a single Airtable row.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type listRecordsResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// AllRecordsView disables view filtering when passed to ListRecords.
const AllRecordsView = "all"

// ListRecords returns every record of the table, restricted to view when one is given.
// Airtable pages by opaque offset tokens, so the whole set is walked.
func (c *Client) ListRecords(ctx context.Context, view string) ([]Record, error) {
	view = strings.TrimSpace(view)
	if view == AllRecordsView {
		view = ""
	}

	records := make([]Record, 0, recordsPageSize)
	offset := ""
	for page := 0; page < maxRecordPages; page++ {
		request := c.request(ctx).
			SetPathParam("table", c.tableName).
			SetQueryParam("pageSize", strconv.Itoa(recordsPageSize))
		if view != "" {
			request.SetQueryParam("view", view)
		}
		if offset != "" {
			request.SetQueryParam("offset", offset)
		}

		var payload listRecordsResponse
		response, err := request.SetResult(&payload).Get("/v0/{baseID}/{table}")
		if err != nil {
			return nil, err
		}
		if err := checkResponse(response); err != nil {
			return nil, err
		}

		records = append(records, payload.Records...)
		c.logger.Debug("airtable records page fetched",
			zap.String("view", view),
			zap.Int("page", page+1),
			zap.Int("records", len(payload.Records)))

		if payload.Offset == "" {
			return records, nil
		}
		offset = payload.Offset
	}
	return nil, ErrTooManyPages
}

type createRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

// CreateRecord inserts a record and returns it as stored.
func (c *Client) CreateRecord(ctx context.Context, fields map[string]any) (Record, error) {
	var created Record
	response, err := c.request(ctx).
		SetPathParam("table", c.tableName).
		SetHeader("Content-Type", "application/json").
		SetBody(createRecordRequest{Fields: fields}).
		SetResult(&created).
		Post("/v0/{baseID}/{table}")
	if err != nil {
		return Record{}, err
	}
	if err := checkResponse(response); err != nil {
		return Record{}, err
	}
	return created, nil
}
