package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDeleted   = "deleted"
)

// ── Admin roles ──

const (
	RoleAdmin = "ADMIN"
)

// ── Result envelope status ──

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ── Event types published on the order feed ──

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)
