package tracker

import (
	"context"

	"github.com/steveljko/timetick/internal/api"
)

// maxPages bounds a collection refresh against a server that keeps reporting
// more pages.
const maxPages = 100

// fetchAll walks every page of a list call.
func fetchAll[T any](ctx context.Context, limit int, list func(context.Context, api.PageParams) (api.Page[T], error)) ([]T, error) {
	records := []T{}
	for page := 1; page <= maxPages; page++ {
		p, err := list(ctx, api.PageParams{Limit: limit, Page: page})
		if err != nil {
			return nil, err
		}
		records = append(records, p.Data...)
		if p.TotalPages <= page || len(p.Data) == 0 {
			break
		}
	}
	return records, nil
}

// replaceByID swaps the record with identifier id for with, or prepends with
// when id is gone.
func replaceByID[T any](records []T, indexOf func([]T, string) int, id string, with T) []T {
	if i := indexOf(records, id); i >= 0 {
		records[i] = with
		return records
	}
	return append([]T{with}, records...)
}
