package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const upsertDraft = `-- name: UpsertDraft :exec
INSERT INTO drafts (session_key, customer_name, customer_phone, room_number, quantities, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, now())
ON CONFLICT (session_key) DO UPDATE
SET customer_name  = EXCLUDED.customer_name,
    customer_phone = EXCLUDED.customer_phone,
    room_number    = EXCLUDED.room_number,
    quantities     = EXCLUDED.quantities,
    updated_at     = now()
`

type UpsertDraftParams struct {
	SessionKey    string            `json:"session_key"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	RoomNumber    string            `json:"room_number"`
	Quantities    map[string]string `json:"quantities"`
}

func (q *Queries) UpsertDraft(ctx context.Context, arg UpsertDraftParams) error {
	quantities := arg.Quantities
	if quantities == nil {
		quantities = map[string]string{}
	}
	raw, err := json.Marshal(quantities)
	if err != nil {
		return fmt.Errorf("encode quantities: %w", err)
	}
	_, err = q.db.Exec(ctx, upsertDraft,
		arg.SessionKey,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.RoomNumber,
		string(raw),
	)
	return err
}

const getDraft = `-- name: GetDraft :one
SELECT session_key, customer_name, customer_phone, room_number, quantities, updated_at
FROM drafts
WHERE session_key = $1
`

func (q *Queries) GetDraft(ctx context.Context, sessionKey string) (Draft, error) {
	return scanDraft(q.db.QueryRow(ctx, getDraft, sessionKey))
}

const getDraftForUpdate = `-- name: GetDraftForUpdate :one
SELECT session_key, customer_name, customer_phone, room_number, quantities, updated_at
FROM drafts
WHERE session_key = $1
FOR UPDATE
`

func (q *Queries) GetDraftForUpdate(ctx context.Context, sessionKey string) (Draft, error) {
	return scanDraft(q.db.QueryRow(ctx, getDraftForUpdate, sessionKey))
}

func scanDraft(row interface{ Scan(...any) error }) (Draft, error) {
	var d Draft
	var raw []byte
	if err := row.Scan(
		&d.SessionKey,
		&d.CustomerName,
		&d.CustomerPhone,
		&d.RoomNumber,
		&raw,
		&d.UpdatedAt,
	); err != nil {
		return Draft{}, err
	}
	d.Quantities = map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.Quantities); err != nil {
			return Draft{}, fmt.Errorf("decode quantities: %w", err)
		}
	}
	return d, nil
}

const deleteDraft = `-- name: DeleteDraft :exec
DELETE FROM drafts
WHERE session_key = $1
`

func (q *Queries) DeleteDraft(ctx context.Context, sessionKey string) error {
	_, err := q.db.Exec(ctx, deleteDraft, sessionKey)
	return err
}

const deleteDraftsBefore = `-- name: DeleteDraftsBefore :execrows
DELETE FROM drafts
WHERE updated_at < $1
`

func (q *Queries) DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDraftsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
