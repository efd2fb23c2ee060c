package airtable

import (
	"context"
	"errors"
	"strings"
)

const (
	// ViewTypeGrid is the default view type.
	ViewTypeGrid      = "grid"
	gridVisibleFields = 5
)

// ErrMissingViewName is returned when a view is created without a name.
var ErrMissingViewName = errors.New("airtable: view name required")

// Field describes a table column.
type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// View describes a saved view of a table.
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is the metadata of one table in the base.
type Table struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId"`
	Fields         []Field `json:"fields"`
	Views          []View  `json:"views"`
}

type tablesResponse struct {
	Tables []Table `json:"tables"`
}

// DescribeTable loads the schema of the configured table.
func (c *Client) DescribeTable(ctx context.Context) (Table, error) {
	var payload tablesResponse
	response, err := c.request(ctx).
		SetResult(&payload).
		Get("/v0/meta/bases/{baseID}/tables")
	if err != nil {
		return Table{}, err
	}
	if err := checkResponse(response); err != nil {
		return Table{}, err
	}
	for _, table := range payload.Tables {
		if table.Name == c.tableName || table.ID == c.tableName {
			return table, nil
		}
	}
	return Table{}, ErrTableNotFound
}

// ListViews returns the views of the configured table along with the table itself.
func (c *Client) ListViews(ctx context.Context) (Table, []View, error) {
	table, err := c.DescribeTable(ctx)
	if err != nil {
		return Table{}, nil, err
	}
	return table, table.Views, nil
}

// ViewRequest describes a view to create.
type ViewRequest struct {
	Name string
	Type string
}

type createViewPayload struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	VisibleFieldIDs []string `json:"visibleFieldIds,omitempty"`
}

// CreateView adds a view to the configured table. Grid views start with the first
// five fields visible.
func (c *Client) CreateView(ctx context.Context, request ViewRequest) (View, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return View{}, ErrMissingViewName
	}
	viewType := strings.TrimSpace(request.Type)
	if viewType == "" {
		viewType = ViewTypeGrid
	}

	table, err := c.DescribeTable(ctx)
	if err != nil {
		return View{}, err
	}

	payload := createViewPayload{Name: name, Type: viewType}
	if viewType == ViewTypeGrid {
		for index, field := range table.Fields {
			if index == gridVisibleFields {
				break
			}
			payload.VisibleFieldIDs = append(payload.VisibleFieldIDs, field.ID)
		}
	}

	var created View
	response, err := c.request(ctx).
		SetPathParam("tableID", table.ID).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&created).
		Post("/v0/meta/bases/{baseID}/tables/{tableID}/views")
	if err != nil {
		return View{}, err
	}
	if err := checkResponse(response); err != nil {
		return View{}, err
	}
	return created, nil
}
