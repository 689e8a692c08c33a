package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// ── Inputs ───────────────────────────────────────────────────────────────────

// CartItem is one requested line of a new sale. UnitPrice overrides the
// catalog price when set; cost always comes from the catalog.
type CartItem struct {
	ProductID int
	VariantID string
	UV        model.UnitOfSale
	Qty       int
	UnitPrice *decimal.Decimal
}

// InitialPayment is a payment handed over at the moment of sale.
type InitialPayment struct {
	Amount decimal.Decimal
	Method model.PaymentMethod
}

// CreateSaleInput is a cart confirmation request.
type CreateSaleInput struct {
	User          string
	Items         []CartItem
	Payments      []InitialPayment
	Delivery      *model.Delivery
	ClientName    string
	ClientDoc     string
	ClientObs     string
	PendingReason string
}

// SalesStats is an aggregate snapshot over the whole sale list.
type SalesStats struct {
	Total       int                      `json:"total"`
	ByStatus    map[model.SaleStatus]int `json:"by_status"`
	Revenue     decimal.Decimal          `json:"revenue"`
	Profit      decimal.Decimal          `json:"profit"`
	Outstanding decimal.Decimal          `json:"outstanding"`
}

// ── Service ──────────────────────────────────────────────────────────────────

// SalesService owns the sale lifecycle: creation from a validated cart,
// status transitions, fulfillment and queries. All ledger side effects run
// in the same store transaction as the sale mutation.
type SalesService interface {
	CreateSale(in CreateSaleInput) (*model.Sale, error)
	ChangeStatus(receipt string, to model.SaleStatus, actor string, role model.Role, reason string) (*model.Sale, error)
	Fulfill(receipt, actor string) (*model.Sale, error)
	GetSale(receipt string) (*model.Sale, error)
	ListSales(status model.SaleStatus) ([]*model.Sale, error)
	PendingSales() ([]*model.Sale, error)
	Stats() (*SalesStats, error)
}

type salesService struct {
	store  *store.Store
	gate   Gate
	ledger ledger
	audit  auditSink
}

func NewSalesService(st *store.Store, gate Gate) SalesService {
	return &salesService{store: st, gate: gate}
}

// settledStatus selects the paid state a settled sale lands in: over the
// counter or pickup means the client walks out with the goods, anything
// shipped waits in READY_FOR_SHIPPING.
func settledStatus(d *model.Delivery) model.SaleStatus {
	if d == nil || d.Type == model.DeliveryPickup {
		return model.StatusPaidCash
	}
	return model.StatusReadyForShipping
}

// CreateSale validates the cart against the catalog, freezes the line
// items, issues the next receipt and applies the creation transition:
// reserve stock for an unpaid sale, consume it directly when the initial
// payments already cover the total.
func (s *salesService) CreateSale(in CreateSaleInput) (*model.Sale, error) {
	if len(in.Items) == 0 {
		return nil, ErrCartEmpty
	}
	for _, p := range in.Payments {
		if !p.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
	}

	var out *model.Sale
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeSales|store.ScopeAudit, func(tx *store.Tx) error {
		items, err := s.buildItems(tx, in.Items)
		if err != nil {
			return err
		}

		total, cost := decimal.Zero, decimal.Zero
		for _, it := range items {
			total = total.Add(it.LineTotal)
			cost = cost.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Qty))))
		}
		total = total.Round(2)
		cost = cost.Round(2)

		now := time.Now().UTC()
		sale := &model.Sale{
			User:          in.User,
			TS:            now,
			Items:         items,
			Total:         total,
			CostTotal:     cost,
			ProfitTotal:   total.Sub(cost).Round(2),
			Delivery:      in.Delivery,
			ClientName:    in.ClientName,
			ClientDoc:     in.ClientDoc,
			ClientObs:     in.ClientObs,
			PendingReason: in.PendingReason,
		}
		for _, p := range in.Payments {
			sale.Payments = append(sale.Payments, model.Payment{
				ID:     uuid.NewString(),
				Amount: p.Amount,
				Method: p.Method,
				TS:     now,
				Actor:  in.User,
			})
		}
		reconcile(sale)

		if sale.IsPaid() {
			sale.Status = settledStatus(sale.Delivery)
			if err := s.ledger.consumeItems(tx, items); err != nil {
				return err
			}
		} else {
			sale.Status = model.StatusPendingPayment
		}

		sale.Receipt = tx.NextReceipt()
		if sale.Status == model.StatusPendingPayment {
			if err := s.ledger.reserveItems(tx, sale.Receipt, items); err != nil {
				return err
			}
		}
		tx.AppendSale(sale)

		s.audit.saleCreated(tx, in.User, sale.Receipt, sale.Total, sale.Status, len(items))
		for _, p := range sale.Payments {
			s.audit.payment(tx, in.User, sale.Receipt, p.Amount, p.Method, sale.PendingAmount)
		}

		out = cloneSale(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("receipt", out.Receipt).Str("status", string(out.Status)).
		Str("total", out.Total.StringFixed(2)).Str("user", in.User).Msg("sale created")
	return out, nil
}

// buildItems resolves every cart line against the catalog and freezes its
// prices. All lines are validated before any is accepted; the combined
// problems come back as one error.
func (s *salesService) buildItems(tx *store.Tx, cart []CartItem) ([]model.SaleItem, error) {
	items := make([]model.SaleItem, 0, len(cart))
	var problems []string
	for i, line := range cart {
		if line.Qty <= 0 {
			problems = append(problems, fmt.Sprintf("line %d: %s", i+1, ErrInvalidQuantity))
			continue
		}
		p, ok := tx.Product(line.ProductID)
		if !ok {
			problems = append(problems, fmt.Sprintf("line %d: product %d not found", i+1, line.ProductID))
			continue
		}
		v := p.Variant(line.VariantID)
		if v == nil {
			problems = append(problems, fmt.Sprintf("line %d: variant %s not found on %s", i+1, line.VariantID, p.SKU))
			continue
		}
		u := v.Unit(line.UV)
		if u == nil {
			problems = append(problems, fmt.Sprintf("line %d: %s not sold as %s/%s", i+1, p.SKU, line.VariantID, line.UV))
			continue
		}

		price := p.UnitPrice(line.VariantID, line.UV)
		if line.UnitPrice != nil {
			price = *line.UnitPrice
		}
		cost := p.UnitCost(line.VariantID, line.UV)
		qty := decimal.NewFromInt(int64(line.Qty))
		items = append(items, model.SaleItem{
			ProductID:         p.ID,
			SKU:               p.SKU,
			Name:              p.Name,
			Qty:               line.Qty,
			UnitPrice:         price,
			UnitCost:          cost,
			LineTotal:         price.Mul(qty).Round(2),
			LineProfit:        price.Sub(cost).Mul(qty).Round(2),
			VariantID:         v.VariantID,
			VariantAttributes: v.Attributes,
			UV:                line.UV,
			UVLabel:           u.Label,
		})
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid cart: %s", strings.Join(problems, "; "))
	}
	return items, nil
}

// ChangeStatus is the generic transition entry point, guarded by the
// permission gate and the transition table. A repeat of the current status
// is a no-op, except on a voided sale, which rejects every request. The
// reason string lands in the annulment reason when voiding and in the
// pending reason otherwise.
func (s *salesService) ChangeStatus(receipt string, to model.SaleStatus, actor string, role model.Role, reason string) (*model.Sale, error) {
	if !model.ValidStatuses[to] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, to)
	}

	var out *model.Sale
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeSales|store.ScopeAudit, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		from := sale.Status
		if from == model.StatusVoided {
			return &IllegalTransitionError{Receipt: receipt, From: from, To: to, Reason: "sale is voided"}
		}
		if from == to {
			out = cloneSale(sale)
			return nil
		}
		if !s.gate.CanTransition(role, from, to) {
			return fmt.Errorf("%w: %s may not move %s from %s to %s", ErrPermissionDenied, role, receipt, from, to)
		}
		if err := s.apply(tx, sale, to, actor, reason); err != nil {
			return err
		}
		s.audit.statusChanged(tx, actor, receipt, from, to)
		out = cloneSale(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("receipt", receipt).Str("status", string(out.Status)).
		Str("actor", actor).Msg("sale status changed")
	return out, nil
}

// apply executes one legal transition with its ledger side effects, or
// rejects it leaving the sale untouched.
func (s *salesService) apply(tx *store.Tx, sale *model.Sale, to model.SaleStatus, actor, reason string) error {
	from := sale.Status
	reject := func(why string) error {
		return &IllegalTransitionError{Receipt: sale.Receipt, From: from, To: to, Reason: why}
	}

	switch {
	case from == model.StatusVoided:
		return reject("sale is voided")

	case to == model.StatusVoided:
		if from == model.StatusPendingPayment {
			if err := s.ledger.releaseItems(tx, sale.Receipt, sale.Items); err != nil {
				return err
			}
			s.audit.stockReleased(tx, actor, sale.Receipt, reason)
		} else {
			// Paid or fulfilled: the goods were consumed, put them back.
			if err := s.ledger.restoreItems(tx, sale.Items); err != nil {
				return err
			}
			s.audit.stockRestored(tx, actor, sale.Receipt, reason)
		}
		sale.Status = to
		sale.AnnulReason = reason
		return nil

	case from == model.StatusPendingPayment && to.IsPaidState():
		if err := s.ledger.commitItems(tx, sale.Receipt, sale.Items); err != nil {
			return err
		}
		if to == model.StatusPaidCash && !sale.IsPaid() {
			// A manual settlement must leave the payment list consistent
			// with the new paid state.
			s.settle(tx, sale, actor)
		}
		sale.Status = to
		if reason != "" {
			sale.PendingReason = reason
		}
		return nil

	case from == model.StatusReadyForPickup || from == model.StatusReadyForShipping:
		if to == model.StatusFulfilled {
			s.fulfillLocked(tx, sale, actor)
			return nil
		}
		return reject("a prepared sale may only be fulfilled or voided")

	case from == model.StatusPaidCash:
		return reject("a settled sale may only be voided")

	case from == model.StatusFulfilled:
		return reject("a fulfilled sale may only be voided")

	default:
		return reject("transition not allowed")
	}
}

// settle appends the synthesized payment that covers the remaining balance.
func (s *salesService) settle(tx *store.Tx, sale *model.Sale, actor string) {
	amount := sale.PendingAmount
	sale.Payments = append(sale.Payments, model.Payment{
		ID:     uuid.NewString(),
		Amount: amount,
		Method: model.SettlementMethod,
		TS:     time.Now().UTC(),
		Actor:  actor,
	})
	reconcile(sale)
	s.audit.payment(tx, actor, sale.Receipt, amount, model.SettlementMethod, sale.PendingAmount)
}

// Fulfill marks a settled or prepared sale as delivered to the client.
func (s *salesService) Fulfill(receipt, actor string) (*model.Sale, error) {
	var out *model.Sale
	err := s.store.UpdateSync(store.ScopeSales|store.ScopeAudit, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		if !sale.Status.IsPaidState() {
			return &IllegalTransitionError{
				Receipt: receipt,
				From:    sale.Status,
				To:      model.StatusFulfilled,
				Reason:  "only a settled or prepared sale can be fulfilled",
			}
		}
		s.fulfillLocked(tx, sale, actor)
		out = cloneSale(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("receipt", receipt).Str("actor", actor).Msg("sale fulfilled")
	return out, nil
}

func (s *salesService) fulfillLocked(tx *store.Tx, sale *model.Sale, actor string) {
	now := time.Now().UTC()
	sale.Status = model.StatusFulfilled
	sale.CompletionTS = &now
	sale.CompletedBy = actor
	s.audit.saleFulfilled(tx, actor, sale.Receipt)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *salesService) GetSale(receipt string) (*model.Sale, error) {
	var out *model.Sale
	err := s.store.View(store.ScopeSales, func(tx *store.Tx) error {
		sale, ok := tx.SaleByReceipt(receipt)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSaleNotFound, receipt)
		}
		out = cloneSale(sale)
		return nil
	})
	return out, err
}

// ListSales returns sales in creation order, optionally filtered by status.
func (s *salesService) ListSales(status model.SaleStatus) ([]*model.Sale, error) {
	if status != "" && !model.ValidStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	var out []*model.Sale
	err := s.store.View(store.ScopeSales, func(tx *store.Tx) error {
		for _, sale := range tx.Sales() {
			if status == "" || sale.Status == status {
				out = append(out, cloneSale(sale))
			}
		}
		return nil
	})
	return out, err
}

func (s *salesService) PendingSales() ([]*model.Sale, error) {
	return s.ListSales(model.StatusPendingPayment)
}

func (s *salesService) Stats() (*SalesStats, error) {
	stats := &SalesStats{
		ByStatus:    make(map[model.SaleStatus]int),
		Revenue:     decimal.Zero,
		Profit:      decimal.Zero,
		Outstanding: decimal.Zero,
	}
	err := s.store.View(store.ScopeSales, func(tx *store.Tx) error {
		for _, sale := range tx.Sales() {
			stats.Total++
			stats.ByStatus[sale.Status]++
			if sale.Status == model.StatusVoided {
				continue
			}
			stats.Revenue = stats.Revenue.Add(sale.PaidAmount)
			stats.Profit = stats.Profit.Add(sale.ProfitTotal)
			stats.Outstanding = stats.Outstanding.Add(sale.PendingAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// cloneSale copies a sale deeply enough that the caller can read it after
// the store locks are released.
func cloneSale(sale *model.Sale) *model.Sale {
	out := *sale
	out.Items = append([]model.SaleItem(nil), sale.Items...)
	out.Payments = append([]model.Payment(nil), sale.Payments...)
	if sale.Delivery != nil {
		d := *sale.Delivery
		out.Delivery = &d
	}
	if sale.CompletionTS != nil {
		ts := *sale.CompletionTS
		out.CompletionTS = &ts
	}
	return &out
}
