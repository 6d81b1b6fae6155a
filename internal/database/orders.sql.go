package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, session_key, customer_name, customer_phone, room_number,
       status, admin_comment, created_at, confirmed_at, deleted_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.SessionKey,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.RoomNumber,
		&o.Status,
		&o.AdminComment,
		&o.CreatedAt,
		&o.ConfirmedAt,
		&o.DeletedAt,
	)
	return o, err
}

const nextOrderNumber = `-- name: NextOrderNumber :one
SELECT nextval('order_number_seq')::bigint
`

func (q *Queries) NextOrderNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextOrderNumber)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (id, order_number, session_key, customer_name, customer_phone, room_number, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	SessionKey    string    `json:"session_key"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	RoomNumber    string    `json:"room_number"`
	Status        string    `json:"status"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.ID,
		arg.OrderNumber,
		arg.SessionKey,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.RoomNumber,
		arg.Status,
	))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, item_id, item_name, quantity, position)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, item_id, item_name, quantity, position
`

type CreateOrderItemParams struct {
	OrderID  uuid.UUID `json:"order_id"`
	ItemID   int64     `json:"item_id"`
	ItemName string    `json:"item_name"`
	Quantity int32     `json:"quantity"`
	Position int32     `json:"position"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ItemID,
		arg.ItemName,
		arg.Quantity,
		arg.Position,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ItemID, &i.ItemName, &i.Quantity, &i.Position)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1::text)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, item_id, item_name, quantity, position
FROM order_items
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ItemID, &i.ItemName, &i.Quantity, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const confirmOrder = `-- name: ConfirmOrder :one
UPDATE orders
SET status = 'confirmed',
    admin_comment = COALESCE($2, admin_comment),
    confirmed_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + orderColumns

type ConfirmOrderParams struct {
	ID           uuid.UUID   `json:"id"`
	AdminComment pgtype.Text `json:"admin_comment"`
}

func (q *Queries) ConfirmOrder(ctx context.Context, arg ConfirmOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, confirmOrder, arg.ID, arg.AdminComment))
}

const softDeleteOrder = `-- name: SoftDeleteOrder :one
UPDATE orders
SET status = 'deleted',
    admin_comment = COALESCE($2, admin_comment),
    deleted_at = now()
WHERE id = $1 AND status <> 'deleted'
RETURNING ` + orderColumns

type SoftDeleteOrderParams struct {
	ID           uuid.UUID   `json:"id"`
	AdminComment pgtype.Text `json:"admin_comment"`
}

func (q *Queries) SoftDeleteOrder(ctx context.Context, arg SoftDeleteOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, softDeleteOrder, arg.ID, arg.AdminComment))
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT o.created_at, o.order_number, o.customer_name, o.room_number, oi.item_name, oi.quantity
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status <> 'deleted'
  AND o.created_at >= $1
  AND o.created_at < $2
ORDER BY o.created_at, oi.position
`

type ListOrderLinesParams struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type ListOrderLinesRow struct {
	CreatedAt    time.Time `json:"created_at"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	RoomNumber   string    `json:"room_number"`
	ItemName     string    `json:"item_name"`
	Quantity     int32     `json:"quantity"`
}

func (q *Queries) ListOrderLines(ctx context.Context, arg ListOrderLinesParams) ([]ListOrderLinesRow, error) {
	rows, err := q.db.Query(ctx, listOrderLines, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []ListOrderLinesRow{}
	for rows.Next() {
		var l ListOrderLinesRow
		if err := rows.Scan(
			&l.CreatedAt,
			&l.OrderNumber,
			&l.CustomerName,
			&l.RoomNumber,
			&l.ItemName,
			&l.Quantity,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
