// Package airtable is a small REST client for the Airtable records and metadata APIs.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultAPIURL   = "https://api.airtable.com"
	defaultTimeout  = 15 * time.Second
	recordsPageSize = 100
	maxRecordPages  = 1000
)

var (
	ErrMissingAPIKey    = errors.New("airtable: api key required")
	ErrMissingBaseID    = errors.New("airtable: base id required")
	ErrMissingTableName = errors.New("airtable: table name required")
	// ErrTableNotFound indicates the configured table is absent from the base schema.
	ErrTableNotFound = errors.New("airtable: table not found")
	// ErrTooManyPages guards against an offset token loop.
	ErrTooManyPages = errors.New("airtable: record pagination did not terminate")
)

// APIError is returned for non-2xx Airtable responses.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: http %d %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: http %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Config describes how to reach a single Airtable table.
type Config struct {
	APIKey     string
	BaseID     string
	TableName  string
	APIURL     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one table of one base.
type Client struct {
	rest      *resty.Client
	baseID    string
	tableName string
	logger    *zap.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseID := strings.TrimSpace(cfg.BaseID)
	if baseID == "" {
		return nil, ErrMissingBaseID
	}
	tableName := strings.TrimSpace(cfg.TableName)
	if tableName == "" {
		return nil, ErrMissingTableName
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var rest *resty.Client
	if cfg.HTTPClient != nil {
		rest = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rest = resty.New().SetTimeout(defaultTimeout)
	}
	rest.SetBaseURL(apiURL).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")

	return &Client{
		rest:      rest,
		baseID:    baseID,
		tableName: tableName,
		logger:    logger,
	}, nil
}

// TableName returns the configured table name.
func (c *Client) TableName() string {
	return c.tableName
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rest.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetPathParam("baseID", c.baseID)
}

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func checkResponse(response *resty.Response) error {
	if !response.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: response.StatusCode(), Type: http.StatusText(response.StatusCode())}
	var envelope errorEnvelope
	if err := json.Unmarshal(response.Body(), &envelope); err == nil && len(envelope.Error) > 0 {
		var detail errorDetail
		if err := json.Unmarshal(envelope.Error, &detail); err == nil {
			if detail.Type != "" {
				apiErr.Type = detail.Type
			}
			apiErr.Message = detail.Message
		} else {
			var code string
			if err := json.Unmarshal(envelope.Error, &code); err == nil && code != "" {
				apiErr.Type = code
			}
		}
	}
	return apiErr
}
