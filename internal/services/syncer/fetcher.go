package syncer

import (
	"context"
	"log/slog"

	"github.com/BearBump/ShipSync/internal/notion"
	"github.com/pkg/errors"
)

type RowQuerier interface {
	QueryRows(ctx context.Context, databaseID, cursor string) (notion.RowPage, error)
}

// FetchAllRows walks every page of the database and returns rows in page order.
// Any page error aborts the whole fetch.
func FetchAllRows(ctx context.Context, q RowQuerier, databaseID string) ([]notion.Row, error) {
	rows := make([]notion.Row, 0)
	cursor := ""
	for page := 1; ; page++ {
		res, err := q.QueryRows(ctx, databaseID, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch rows page %d", page)
		}
		rows = append(rows, res.Rows...)

		if !res.HasMore {
			return rows, nil
		}
		if res.NextCursor == "" {
			// Без курсора дальше идти некуда: отдаём то, что уже прочитали.
			slog.Warn("has_more without next_cursor, stopping pagination", "database_id", databaseID, "page", page)
			return rows, nil
		}
		cursor = res.NextCursor
	}
}
