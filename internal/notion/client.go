package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/pkg/errors"
)

// Row is one database page: its immutable id and raw typed properties.
type Row struct {
	ID         string
	Properties notionapi.Properties
}

type RowPage struct {
	Rows       []Row
	HasMore    bool
	NextCursor string
}

type Client struct {
	api      *notionapi.Client
	pageSize int
}

func New(token string, pageSize int, opts ...notionapi.ClientOption) *Client {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Client{
		api:      notionapi.NewClient(notionapi.Token(token), opts...),
		pageSize: pageSize,
	}
}

// QueryRows fetches one page of rows starting at cursor ("" for the first page).
func (c *Client) QueryRows(ctx context.Context, databaseID, cursor string) (RowPage, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    c.pageSize,
	})
	if err != nil {
		return RowPage{}, errors.Wrap(err, "notion query")
	}

	out := RowPage{
		Rows:       make([]Row, 0, len(resp.Results)),
		HasMore:    resp.HasMore,
		NextCursor: string(resp.NextCursor),
	}
	for _, p := range resp.Results {
		out.Rows = append(out.Rows, Row{ID: string(p.ID), Properties: p.Properties})
	}
	return out, nil
}

func (c *Client) UpdateRow(ctx context.Context, rowID string, props notionapi.Properties) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(rowID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return errors.Wrap(err, "notion update page")
	}
	return nil
}
