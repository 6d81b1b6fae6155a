package database

import (
	"context"
)

const createItem = `-- name: CreateItem :one
INSERT INTO items (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateItem(ctx context.Context, name string) (Item, error) {
	row := q.db.QueryRow(ctx, createItem, name)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const updateItemName = `-- name: UpdateItemName :one
UPDATE items
SET name = $1
WHERE id = $2
RETURNING id, name, created_at
`

type UpdateItemNameParams struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

func (q *Queries) UpdateItemName(ctx context.Context, arg UpdateItemNameParams) (Item, error) {
	row := q.db.QueryRow(ctx, updateItemName, arg.Name, arg.ID)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const deleteItem = `-- name: DeleteItem :one
DELETE FROM items
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteItem(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteItem, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}

const listItems = `-- name: ListItems :many
SELECT id, name, created_at
FROM items
ORDER BY id
`

func (q *Queries) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// position() instead of ILIKE so that % and _ in the query match literally.
const searchItems = `-- name: SearchItems :many
SELECT id, name, created_at
FROM items
WHERE position(lower($1::text) IN lower(name)) > 0
ORDER BY id
`

func (q *Queries) SearchItems(ctx context.Context, query string) ([]Item, error) {
	rows, err := q.db.Query(ctx, searchItems, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getItemsByIDs = `-- name: GetItemsByIDs :many
SELECT id, name, created_at
FROM items
WHERE id = ANY($1::bigint[])
ORDER BY id
`

func (q *Queries) GetItemsByIDs(ctx context.Context, ids []int64) ([]Item, error) {
	rows, err := q.db.Query(ctx, getItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
