package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/language-academy/internal/model"
)

// Reorder applies updates one row at a time without a transaction.  Rows
// that do not exist under the parent are skipped.  The returned count only
// includes rows actually updated; on a store error the count reflects the
// rows written before it, which stay written.
func Reorder(ctx context.Context, updates []model.OrderUpdate, apply func(ctx context.Context, id uint64, orderIndex int) (bool, error)) (int, error) {
	n := 0
	for _, u := range updates {
		ok, err := apply(ctx, u.ID, u.OrderIndex)
		if err != nil {
			return n, fmt.Errorf("reorder id %d: %w", u.ID, err)
		}
		if ok {
			n++
		}
	}
	return n, nil
}
