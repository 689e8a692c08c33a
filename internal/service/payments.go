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

// PaymentPreview is a dry run of a payment against a sale.
type PaymentPreview struct {
	Receipt          string          `json:"receipt"`
	Pending          decimal.Decimal `json:"pending"`
	Accepted         bool            `json:"accepted"`
	ResultingPaid    decimal.Decimal `json:"resulting_paid"`
	ResultingPending decimal.Decimal `json:"resulting_pending"`
	WouldSettle      bool            `json:"would_settle"`
	Reason           string          `json:"reason,omitempty"`
}

// PaymentService is the payment reconciler. It is the only writer of a
// sale's money fields: every accepted payment appends to the ledger and
// recomputes paid/pending from the full list, never from a cached figure.
type PaymentService interface {
	AddPayment(receipt string, amount decimal.Decimal, method model.PaymentMethod, actor string) (*model.Sale, error)
	ValidatePayment(receipt string, amount decimal.Decimal) (*PaymentPreview, error)
	PaymentHistory(receipt string) ([]model.Payment, error)
}

type paymentService struct {
	store  *store.Store
	ledger ledger
	audit  auditSink
}

func NewPaymentService(st *store.Store) PaymentService {
	return &paymentService{store: st}
}

// reconcile recomputes the derived money fields from the payment list.
// Overpayment at creation time floors pending at zero.
func reconcile(sale *model.Sale) {
	paid := decimal.Zero
	for _, p := range sale.Payments {
		paid = paid.Add(p.Amount)
	}
	sale.PaidAmount = paid.Round(2)
	pending := sale.Total.Sub(sale.PaidAmount).Round(2)
	if pending.IsNegative() {
		pending = decimal.Zero
	}
	sale.PendingAmount = pending
}

// pendingOf computes the balance straight from the payment list, ignoring
// the cached field, so a drifted snapshot can never let money through.
func pendingOf(sale *model.Sale) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range sale.Payments {
		paid = paid.Add(p.Amount)
	}
	pending := sale.Total.Sub(paid).Round(2)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// AddPayment records a payment against the sale. When the balance of a
// pending sale reaches zero the sale settles automatically: reserved stock
// is committed and the status moves to the paid state its delivery type
// selects. Every accepted payment emits exactly one audit event.
func (s *paymentService) AddPayment(receipt string, amount decimal.Decimal, method model.PaymentMethod, actor string) (*model.Sale, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var out *model.Sale
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeSales|store.ScopeAudit, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		if sale.Status == model.StatusVoided {
			return fmt.Errorf("%w: %s", ErrSaleClosed, receipt)
		}
		pending := pendingOf(sale)
		if amount.GreaterThan(pending) {
			return &ExceedsPendingError{Pending: pending}
		}

		sale.Payments = append(sale.Payments, model.Payment{
			ID:     uuid.NewString(),
			Amount: amount,
			Method: method,
			TS:     time.Now().UTC(),
			Actor:  actor,
		})
		reconcile(sale)

		if sale.Status == model.StatusPendingPayment && sale.IsPaid() {
			if err := s.ledger.commitItems(tx, sale.Receipt, sale.Items); err != nil {
				return err
			}
			from := sale.Status
			sale.Status = settledStatus(sale.Delivery)
			s.audit.statusChanged(tx, actor, receipt, from, sale.Status)
		}

		s.audit.payment(tx, actor, receipt, amount, method, sale.PendingAmount)
		out = cloneSale(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("receipt", receipt).Str("amount", amount.StringFixed(2)).
		Str("method", string(method)).Str("pending", out.PendingAmount.StringFixed(2)).
		Msg("payment recorded")
	return out, nil
}

// ValidatePayment answers what AddPayment would do, without doing it.
func (s *paymentService) ValidatePayment(receipt string, amount decimal.Decimal) (*PaymentPreview, error) {
	var out *PaymentPreview
	err := s.store.View(store.ScopeSales, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		pending := pendingOf(sale)
		out = &PaymentPreview{
			Receipt: receipt,
			Pending: pending,
		}
		switch {
		case !amount.IsPositive():
			out.Reason = ErrInvalidAmount.Error()
		case sale.Status == model.StatusVoided:
			out.Reason = ErrSaleClosed.Error()
		case amount.GreaterThan(pending):
			out.Reason = (&ExceedsPendingError{Pending: pending}).Error()
		default:
			out.Accepted = true
			out.ResultingPaid = sale.PaidAmount.Add(amount).Round(2)
			out.ResultingPending = pending.Sub(amount).Round(2)
			out.WouldSettle = sale.Status == model.StatusPendingPayment && out.ResultingPending.IsZero()
		}
		if !out.Accepted {
			out.ResultingPaid = sale.PaidAmount
			out.ResultingPending = pending
		}
		return nil
	})
	return out, err
}

// PaymentHistory returns the sale's payment ledger in append order.
func (s *paymentService) PaymentHistory(receipt string) ([]model.Payment, error) {
	var out []model.Payment
	err := s.store.View(store.ScopeSales, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		out = append([]model.Payment(nil), sale.Payments...)
		return nil
	})
	return out, err
}
