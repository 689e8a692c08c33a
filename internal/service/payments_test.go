package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzzxn/app-stock/internal/model"
)

func TestAddPayment_PartialThenSettles(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 2)

	partial, err := e.payments.AddPayment(sale.Receipt, dec("5"), model.MethodCash, "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingPayment, partial.Status)
	assert.True(t, partial.PaidAmount.Equal(dec("5")))
	assert.True(t, partial.PendingAmount.Equal(dec("15")))
	assert.Equal(t, 2, e.shoeUnit(t).Reserved)

	settled, err := e.payments.AddPayment(sale.Receipt, dec("15"), model.MethodWallet, "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaidCash, settled.Status)
	assert.True(t, settled.PendingAmount.IsZero())

	u := e.shoeUnit(t)
	assert.Equal(t, 8, u.Stock)
	assert.Equal(t, 0, u.Reserved)
}

func TestAddPayment_SettlesIntoShippingState(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	sale, err := e.sales.CreateSale(CreateSaleInput{
		User:     "cashier",
		Items:    e.cart(1),
		Delivery: &model.Delivery{Type: model.DeliveryLocal, Address: "main st"},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPendingPayment, sale.Status)

	settled, err := e.payments.AddPayment(sale.Receipt, dec("10"), model.MethodCash, "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReadyForShipping, settled.Status)
}

func TestAddPayment_ExceedsPending_RejectedWithoutSideEffects(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 2)

	auditBefore := e.auditCount(t, model.AuditPayment)

	_, err := e.payments.AddPayment(sale.Receipt, dec("25"), model.MethodCash, "cashier")
	var exceeds *ExceedsPendingError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Pending.Equal(dec("20")))

	// Sale untouched, no audit event.
	after, err := e.sales.GetSale(sale.Receipt)
	require.NoError(t, err)
	assert.Empty(t, after.Payments)
	assert.True(t, after.PendingAmount.Equal(dec("20")))
	assert.Equal(t, auditBefore, e.auditCount(t, model.AuditPayment))
}

func TestAddPayment_NonPositiveAmount(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 1)

	_, err := e.payments.AddPayment(sale.Receipt, dec("0"), model.MethodCash, "cashier")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.payments.AddPayment(sale.Receipt, dec("-3"), model.MethodCash, "cashier")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAddPayment_VoidedSale_Rejected(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 1)

	_, err := e.sales.ChangeStatus(sale.Receipt, model.StatusVoided, "boss", model.RoleAdmin, "")
	require.NoError(t, err)

	_, err = e.payments.AddPayment(sale.Receipt, dec("10"), model.MethodCash, "cashier")
	assert.ErrorIs(t, err, ErrSaleClosed)
}

func TestAddPayment_EveryPaymentAudited(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 2)

	_, err := e.payments.AddPayment(sale.Receipt, dec("5"), model.MethodCash, "cashier")
	require.NoError(t, err)
	_, err = e.payments.AddPayment(sale.Receipt, dec("15"), model.MethodCard, "cashier")
	require.NoError(t, err)

	assert.Equal(t, 2, e.auditCount(t, model.AuditPayment))
}

func TestAddPayment_DerivedFieldsRounded(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	override := dec("3.333")
	sale, err := e.sales.CreateSale(CreateSaleInput{
		User:  "cashier",
		Items: []CartItem{{ProductID: 1, VariantID: "V1", UV: model.UnitBox, Qty: 3, UnitPrice: &override}},
	})
	require.NoError(t, err)
	// 3 x 3.333 rounds to 10.00 at the line level.
	assert.True(t, sale.Total.Equal(dec("10.00")))

	paid, err := e.payments.AddPayment(sale.Receipt, dec("9.999"), model.MethodCash, "cashier")
	require.NoError(t, err)
	assert.True(t, paid.PaidAmount.Equal(dec("10.00")))
	assert.True(t, paid.PendingAmount.IsZero())
}

func TestValidatePayment_Preview(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 2)

	ok, err := e.payments.ValidatePayment(sale.Receipt, dec("20"))
	require.NoError(t, err)
	assert.True(t, ok.Accepted)
	assert.True(t, ok.WouldSettle)
	assert.True(t, ok.ResultingPending.IsZero())

	tooMuch, err := e.payments.ValidatePayment(sale.Receipt, dec("25"))
	require.NoError(t, err)
	assert.False(t, tooMuch.Accepted)
	assert.NotEmpty(t, tooMuch.Reason)

	// A dry run never mutates the sale.
	after, err := e.sales.GetSale(sale.Receipt)
	require.NoError(t, err)
	assert.Empty(t, after.Payments)
}

func TestPaymentHistory_AppendOrder(t *testing.T) {
	e := newEnv(t)
	sale := e.pendingShoeSale(t, 2)

	_, err := e.payments.AddPayment(sale.Receipt, dec("5"), model.MethodCash, "cashier")
	require.NoError(t, err)
	_, err = e.payments.AddPayment(sale.Receipt, dec("7"), model.MethodWallet, "cashier")
	require.NoError(t, err)

	history, err := e.payments.PaymentHistory(sale.Receipt)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Amount.Equal(dec("5")))
	assert.True(t, history[1].Amount.Equal(dec("7")))
	assert.Equal(t, model.MethodWallet, history[1].Method)
}
