package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/roomservice/api/internal/apperr"
)

// Errors returned by the catalog and order services. Each matches one of the
// apperr kinds under errors.Is.
var (
	ErrEmptyName         = apperr.New(apperr.ErrValidation, "name is required")
	ErrInvalidItemID     = apperr.New(apperr.ErrValidation, "invalid item id")
	ErrItemNotFound      = apperr.New(apperr.ErrNotFound, "item not found")
	ErrNoItemsSelected   = apperr.New(apperr.ErrValidation, "select at least one item with a quantity above zero")
	ErrSubmitInProgress  = apperr.New(apperr.ErrConflict, "order submission already in progress")
	ErrOrderNotFound     = apperr.New(apperr.ErrNotFound, "order not found")
	ErrOrderStatusChange = apperr.New(apperr.ErrConflict, "order status does not allow this change")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
