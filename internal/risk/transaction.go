package risk

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType is the fixed set of transfer kinds the engine accepts.
type TransactionType string

const (
	TypeTransfer   TransactionType = "transfer"
	TypePayment    TransactionType = "payment"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDeposit    TransactionType = "deposit"
	TypeBillPay    TransactionType = "bill_pay"
)

var validTypes = map[TransactionType]bool{
	TypeTransfer:   true,
	TypePayment:    true,
	TypeWithdrawal: true,
	TypeDeposit:    true,
	TypeBillPay:    true,
}

// AgentInfo describes the handling agent for agent-assisted transfers.
type AgentInfo struct {
	TrustScore float64 `json:"trustScore"`
}

// DeviceContext carries the device-side signals attached to a transaction.
// Trust is computed upstream by the device trust scorer; this engine treats
// it as input.
type DeviceContext struct {
	IsNewDevice bool    `json:"isNewDevice"`
	TrustScore  float64 `json:"trustScore"`
}

// UserProfile holds the slice of the user profile the scorer reads.
type UserProfile struct {
	LastKnownLocation string `json:"lastKnownLocation"`
}

// Transaction is one financial transfer to be scored. Read-only to the
// engine.
type Transaction struct {
	ID               string          `json:"id"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	Timestamp        time.Time       `json:"timestamp"`
	Type             TransactionType `json:"type"`
	Location         string          `json:"location"`
	MerchantCategory string          `json:"merchantCategory"`
	Agent            AgentInfo       `json:"agentInfo"`
	Device           DeviceContext   `json:"deviceFingerprint"`
	Profile          UserProfile     `json:"userProfile"`
	NetworkTrust     float64         `json:"networkTrust"`
	PINAttempts      int             `json:"pinAttempts"`
}

// ValidationError rejects malformed input before scoring. Malformed fields
// are never silently defaulted: a missing signal could mask an attack.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the transaction input contract.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return &ValidationError{Field: "id", Message: "required"}
	}
	if t.Amount < 0 {
		return &ValidationError{Field: "amount", Message: "must be >= 0"}
	}
	if t.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "required"}
	}
	if !validTypes[t.Type] {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", t.Type)}
	}
	if t.PINAttempts < 1 {
		return &ValidationError{Field: "pinAttempts", Message: "must be >= 1"}
	}
	return nil
}
