package checkout

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sufra/cartstore"
	"sufra/models"
)

type fakeSubmitter struct {
	requests []models.OrderRequest
	failAt   int // 1-based call index to fail on; 0 = never
	calls    int
	block    chan struct{} // when set, Submit waits on it
}

func (f *fakeSubmitter) Submit(_ context.Context, req models.OrderRequest) (models.OrderReceipt, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.failAt != 0 && f.calls == f.failAt {
		return models.OrderReceipt{}, errors.New("branch offline")
	}
	f.requests = append(f.requests, req)
	return models.OrderReceipt{
		OrderID:     "ord-test",
		OrderNumber: "ORD0001",
	}, nil
}

func seededStore(t *testing.T) *cartstore.Store {
	t.Helper()
	ctx := context.Background()
	store := cartstore.New(cartstore.NewMemoryStorage(), "u1")
	store.Dispatch(ctx, cartstore.AddItem{Item: models.CartItem{
		ID: 1, Name: "Burger", Price: 10, Quantity: 2, BranchID: 5,
	}})
	store.Dispatch(ctx, cartstore.AddItem{Item: models.CartItem{
		ID: 2, Name: "Fries", Price: 3, Quantity: 1, BranchID: 5,
	}})
	return store
}

func validForm() Form {
	return Form{
		Name:          "Amina",
		Phone:         "0550000000",
		Email:         "amina@example.com",
		Address:       "12 Harbor Rd",
		PaymentMethod: PayCash,
		DeliveryType:  DeliverDelivery,
	}
}

func TestFormValidationOrder(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Form)
		field string
	}{
		{"missing name", func(f *Form) { f.Name = "" }, "name"},
		{"missing phone", func(f *Form) { f.Phone = "" }, "phone"},
		{"missing email", func(f *Form) { f.Email = "" }, "email"},
		{"bad email", func(f *Form) { f.Email = "not an email" }, "email"},
		{"delivery without address", func(f *Form) { f.Address = "" }, "address"},
		{"bad payment", func(f *Form) { f.PaymentMethod = "barter" }, "payment_method"},
		{"bad delivery type", func(f *Form) { f.DeliveryType = "drone" }, "delivery_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mut(&form)
			err := form.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestPickupNeedsNoAddress(t *testing.T) {
	form := validForm()
	form.DeliveryType = DeliverPickup
	form.Address = ""
	assert.NoError(t, form.Validate())
}

func TestCheckoutBranchDeliveryTotals(t *testing.T) {
	store := seededStore(t)
	sub := &fakeSubmitter{}
	o := New(sub, "u1")

	res, err := o.CheckoutBranch(context.Background(), store, 5, validForm())
	require.NoError(t, err)

	assert.Equal(t, 23.0, res.Total)
	assert.Equal(t, 5.0, res.Fee)
	assert.Equal(t, 28.0, res.Final)
	require.Len(t, res.Receipts, 1)
	assert.Equal(t, "ORD0001", res.Receipts[0].OrderNumber)
	assert.Equal(t, StateSucceeded, o.State())

	require.Len(t, sub.requests, 1)
	assert.Equal(t, 28.0, sub.requests[0].TotalAmount)
	assert.Len(t, sub.requests[0].Items, 2)

	// The branch cart is cleared on success.
	assert.Empty(t, store.BranchItems(5))
}

func TestCheckoutBranchPickupSkipsFee(t *testing.T) {
	store := seededStore(t)
	o := New(&fakeSubmitter{}, "u1")

	form := validForm()
	form.DeliveryType = DeliverPickup
	res, err := o.CheckoutBranch(context.Background(), store, 5, form)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fee)
	assert.Equal(t, 23.0, res.Final)
}

func TestCheckoutBranchValidationAborts(t *testing.T) {
	store := seededStore(t)
	sub := &fakeSubmitter{}
	o := New(sub, "u1")

	form := validForm()
	form.Email = "nope"
	_, err := o.CheckoutBranch(context.Background(), store, 5, form)
	require.Error(t, err)
	assert.Zero(t, sub.calls, "no submission on validation failure")
	assert.Len(t, store.BranchItems(5), 2, "cart untouched")
	assert.Equal(t, StateFailed, o.State())
}

func TestCheckoutBranchEmptyCart(t *testing.T) {
	store := cartstore.New(cartstore.NewMemoryStorage(), "u1")
	o := New(&fakeSubmitter{}, "u1")
	_, err := o.CheckoutBranch(context.Background(), store, 5, validForm())
	assert.ErrorIs(t, err, ErrEmptyBranch)
}

func TestCheckoutAllSequentialAndFeeFree(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	store.Dispatch(ctx, cartstore.AddItem{Item: models.CartItem{
		ID: 7, Name: "Shawarma", Price: 4, Quantity: 2, BranchID: 2,
	}})

	sub := &fakeSubmitter{}
	o := New(sub, "u1")
	res, err := o.CheckoutAll(ctx, store, validForm())
	require.NoError(t, err)

	require.Len(t, sub.requests, 2)
	assert.Equal(t, 2, sub.requests[0].BranchID, "branches submit in ascending order")
	assert.Equal(t, 5, sub.requests[1].BranchID)
	assert.Equal(t, 0.0, sub.requests[0].DeliveryFee)
	assert.Equal(t, 0.0, sub.requests[1].DeliveryFee)

	assert.Equal(t, 31.0, res.Total)
	assert.Equal(t, 31.0, res.Final)
	assert.Empty(t, store.AllBranches(), "all branch carts cleared")
}

func TestCheckoutAllAbortsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	store.Dispatch(ctx, cartstore.AddItem{Item: models.CartItem{
		ID: 7, Name: "Shawarma", Price: 4, Quantity: 2, BranchID: 2,
	}})

	sub := &fakeSubmitter{failAt: 2}
	o := New(sub, "u1")
	_, err := o.CheckoutAll(ctx, store, validForm())
	require.Error(t, err)
	assert.Equal(t, StateFailed, o.State())

	// Branch 2 succeeded and was cleared; branch 5 failed and keeps its cart.
	assert.Empty(t, store.BranchItems(2))
	assert.Len(t, store.BranchItems(5), 2)
	assert.Equal(t, 2, sub.calls, "no submissions after the failure")
}

func TestReentryBlockedWhileSubmitting(t *testing.T) {
	store := seededStore(t)
	sub := &fakeSubmitter{block: make(chan struct{})}
	o := New(sub, "u1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.CheckoutBranch(context.Background(), store, 5, validForm())
	}()

	// Wait for the first attempt to reach Submitting.
	for o.State() != StateSubmitting {
		runtime.Gosched()
	}
	_, err := o.CheckoutBranch(context.Background(), store, 5, validForm())
	assert.ErrorIs(t, err, ErrBusy)

	close(sub.block)
	<-done
	assert.Equal(t, StateSucceeded, o.State())
}

func TestFailedAttemptIsRetryable(t *testing.T) {
	store := seededStore(t)
	sub := &fakeSubmitter{failAt: 1}
	o := New(sub, "u1")

	_, err := o.CheckoutBranch(context.Background(), store, 5, validForm())
	require.Error(t, err)

	res, err := o.CheckoutBranch(context.Background(), store, 5, validForm())
	require.NoError(t, err)
	assert.Equal(t, 28.0, res.Final)
}
