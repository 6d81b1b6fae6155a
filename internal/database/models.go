package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Draft struct {
	SessionKey    string            `json:"session_key"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	RoomNumber    string            `json:"room_number"`
	Quantities    map[string]string `json:"quantities"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID          `json:"id"`
	OrderNumber   string             `json:"order_number"`
	SessionKey    string             `json:"session_key"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	RoomNumber    string             `json:"room_number"`
	Status        string             `json:"status"`
	AdminComment  pgtype.Text        `json:"admin_comment"`
	CreatedAt     time.Time          `json:"created_at"`
	ConfirmedAt   pgtype.Timestamptz `json:"confirmed_at"`
	DeletedAt     pgtype.Timestamptz `json:"deleted_at"`
}

type OrderItem struct {
	ID       int64     `json:"id"`
	OrderID  uuid.UUID `json:"order_id"`
	ItemID   int64     `json:"item_id"`
	ItemName string    `json:"item_name"`
	Quantity int32     `json:"quantity"`
	Position int32     `json:"position"`
}
