package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// auditSink writes structured events to the audit resource. Events are
// appended inside the same transaction as the change they describe, so the
// trail can never record a change that was not applied. Emission is
// fire-and-forget for the business operation: it has no failure mode the
// caller must handle.
//
// The golden rule: if money comes in, a PAYMENT event is always written.
type auditSink struct{}

func (auditSink) emit(tx *store.Tx, typ model.AuditType, actor, message, relatedID string, details map[string]interface{}) {
	tx.AppendAudit(model.AuditEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Actor:     actor,
		Message:   message,
		TS:        time.Now().UTC(),
		RelatedID: relatedID,
		Details:   details,
	})
	log.Debug().Str("type", string(typ)).Str("actor", actor).Str("related_id", relatedID).Msg(message)
}

func (a auditSink) saleCreated(tx *store.Tx, actor, receipt string, total decimal.Decimal, status model.SaleStatus, itemCount int) {
	a.emit(tx, model.AuditSale, actor,
		fmt.Sprintf("Sale %s created: %d item(s), total %s, status %s", receipt, itemCount, total.StringFixed(2), status),
		receipt,
		map[string]interface{}{"total": total.StringFixed(2), "status": string(status), "items": itemCount})
}

func (a auditSink) payment(tx *store.Tx, actor, receipt string, amount decimal.Decimal, method model.PaymentMethod, pendingAfter decimal.Decimal) {
	a.emit(tx, model.AuditPayment, actor,
		fmt.Sprintf("Payment of %s (%s) on sale %s, pending %s", amount.StringFixed(2), method, receipt, pendingAfter.StringFixed(2)),
		receipt,
		map[string]interface{}{"amount": amount.StringFixed(2), "method": method, "pending_after": pendingAfter.StringFixed(2)})
}

func (a auditSink) statusChanged(tx *store.Tx, actor, receipt string, from, to model.SaleStatus) {
	a.emit(tx, model.AuditSale, actor,
		fmt.Sprintf("Sale %s status changed: %s -> %s", receipt, from, to),
		receipt,
		map[string]interface{}{"from": string(from), "to": string(to)})
}

func (a auditSink) saleFulfilled(tx *store.Tx, actor, receipt string) {
	a.emit(tx, model.AuditSale, actor, fmt.Sprintf("Sale %s delivered to client", receipt), receipt, nil)
}

func (a auditSink) stockAdded(tx *store.Tx, actor string, key store.UnitKey, sku string, qty int) {
	a.emit(tx, model.AuditStock, actor,
		fmt.Sprintf("Stock +%d on %s (%s)", qty, key, sku),
		sku,
		map[string]interface{}{"qty": qty, "variant": key.VariantID, "uv": string(key.UV)})
}

func (a auditSink) stockRemoved(tx *store.Tx, actor string, key store.UnitKey, sku string, qty int) {
	a.emit(tx, model.AuditStock, actor,
		fmt.Sprintf("Stock -%d on %s (%s)", qty, key, sku),
		sku,
		map[string]interface{}{"qty": qty, "variant": key.VariantID, "uv": string(key.UV)})
}

func (a auditSink) stockReleased(tx *store.Tx, actor, receipt, reason string) {
	a.emit(tx, model.AuditStock, actor,
		fmt.Sprintf("Reserved stock of sale %s released (%s)", receipt, reason),
		receipt,
		map[string]interface{}{"reason": reason})
}

func (a auditSink) stockRestored(tx *store.Tx, actor, receipt, reason string) {
	a.emit(tx, model.AuditStock, actor,
		fmt.Sprintf("Stock of voided sale %s returned to shelf (%s)", receipt, reason),
		receipt,
		map[string]interface{}{"reason": reason})
}

func (a auditSink) system(tx *store.Tx, actor, message, relatedID string) {
	a.emit(tx, model.AuditSystem, actor, message, relatedID, nil)
}

// AuditLog is the read side of the trail.
type AuditLog interface {
	Events(typ model.AuditType, limit int) ([]model.AuditEvent, error)
}

type auditLog struct {
	store *store.Store
}

func NewAuditLog(st *store.Store) AuditLog {
	return &auditLog{store: st}
}

// Events returns trail entries in append order, optionally filtered by
// type. A positive limit keeps only the most recent entries.
func (a *auditLog) Events(typ model.AuditType, limit int) ([]model.AuditEvent, error) {
	var out []model.AuditEvent
	err := a.store.View(store.ScopeAudit, func(tx *store.Tx) error {
		for _, ev := range tx.AuditEvents() {
			if typ == "" || ev.Type == typ {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
