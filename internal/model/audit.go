package model

import "time"

// AuditType categorizes audit events.
type AuditType string

const (
	AuditSale    AuditType = "SALE"
	AuditPayment AuditType = "PAYMENT"
	AuditStock   AuditType = "STOCK"
	AuditSystem  AuditType = "SYSTEM"
)

// AuditEvent is one structured entry of the append-only audit trail.
// RelatedID links the event to a receipt or product SKU.
type AuditEvent struct {
	ID        string                 `json:"id"`
	Type      AuditType              `json:"type"`
	Actor     string                 `json:"actor"`
	Message   string                 `json:"message"`
	TS        time.Time              `json:"ts"`
	RelatedID string                 `json:"related_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
