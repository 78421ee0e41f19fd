package models

const (
	HookModeSubscribe   = "subscribe"
	HookModeUnsubscribe = "unsubscribe"
)

const (
	EventStatePending = "pending"
	EventStateFailed  = "failed"
	EventStateSuccess = "success"
)

// Hook is a subscriber's registration for outbound event notifications. The
// subscription API owns these rows; this process only reads them.
type Hook struct {
	ID         string `json:"id"`
	Network    int64  `json:"network"`
	Mode       string `json:"mode"` // subscribe, unsubscribe
	Topic      string `json:"topic"`
	Callback   string `json:"callback"`
	Secret     string `json:"secret,omitempty"`
	Expiration int64  `json:"expiration"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// HookEvent is one logical notification for a Hook, mutated in place as
// delivery attempts accumulate. Terminal states are success and failed.
type HookEvent struct {
	ID        string `json:"id"`
	HookID    string `json:"hook_id"`
	Network   int64  `json:"network"`
	Lock      string `json:"lock,omitempty"`
	Topic     string `json:"topic"`
	Body      string `json:"body"`
	State     string `json:"state"` // pending, failed, success
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// KeySubscription marks a membership key as configured for automatic renewal.
// Keys with recurring > 0 are eligible.
type KeySubscription struct {
	ID                int64  `json:"id"`
	Network           int64  `json:"network"`
	LockAddress       string `json:"lock_address"`
	KeyID             string `json:"key_id"`
	UserAddress       string `json:"user_address"`
	Recurring         int    `json:"recurring"`
	ConnectedCustomer string `json:"connected_customer,omitempty"`
	PriceCents        int64  `json:"price_cents,omitempty"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// KeyRenewal is the append-only audit trail of renewal attempts. Tx is set
// only when a transaction was actually submitted, so a failed submission can
// never be mistaken for a completed renewal.
type KeyRenewal struct {
	ID          int64  `json:"id"`
	Network     int64  `json:"network"`
	LockAddress string `json:"lock_address"`
	KeyID       string `json:"key_id"`
	Tx          string `json:"tx,omitempty"`
	InitiatedBy string `json:"initiated_by,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// UserMetadata holds per-user, per-lock metadata collected at checkout. The
// bulk email job resolves recipient addresses from Data.
type UserMetadata struct {
	ID          int64          `json:"id"`
	Network     int64          `json:"network"`
	LockAddress string         `json:"lock_address"`
	UserAddress string         `json:"user_address"`
	Data        map[string]any `json:"data"` // JSON object in DB
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}
