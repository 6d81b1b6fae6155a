package database

import (
	"context"
	"time"
)

// Weeks end on Sunday: date_trunc('week') yields the Monday that starts the week.
const getWeeklyItemTotals = `-- name: GetWeeklyItemTotals :many
SELECT (date_trunc('week', o.created_at) + interval '6 days')::date AS week_ending,
       oi.item_name,
       SUM(oi.quantity)::bigint AS total_quantity
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status <> 'deleted'
  AND o.created_at >= $1
  AND o.created_at < $2
GROUP BY week_ending, oi.item_name
ORDER BY week_ending, oi.item_name
`

type GetWeeklyItemTotalsParams struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type GetWeeklyItemTotalsRow struct {
	WeekEnding    time.Time `json:"week_ending"`
	ItemName      string    `json:"item_name"`
	TotalQuantity int64     `json:"total_quantity"`
}

func (q *Queries) GetWeeklyItemTotals(ctx context.Context, arg GetWeeklyItemTotalsParams) ([]GetWeeklyItemTotalsRow, error) {
	rows, err := q.db.Query(ctx, getWeeklyItemTotals, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []GetWeeklyItemTotalsRow{}
	for rows.Next() {
		var r GetWeeklyItemTotalsRow
		if err := rows.Scan(&r.WeekEnding, &r.ItemName, &r.TotalQuantity); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
