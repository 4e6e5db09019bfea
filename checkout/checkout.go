package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"sufra/cartstore"
	"sufra/models"
)

// DeliveryFee is the flat fee charged on single-branch delivery checkouts.
// The multi-branch path charges no delivery fee; the order service taxes each
// branch order instead. See DESIGN.md for why both policies are kept.
const DeliveryFee = 5.00

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Payment methods and delivery types accepted on the checkout form.
const (
	PayCash   = "cash"
	PayCard   = "card"
	PayOnline = "online"

	DeliverPickup   = "pickup"
	DeliverDelivery = "delivery"
)

// Form is the customer-facing checkout form.
type Form struct {
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	Address             string `json:"address,omitempty"`
	PaymentMethod       string `json:"payment_method"`
	DeliveryType        string `json:"delivery_type"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// ValidationError reports the first failing form rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate runs the form rules in order and returns the first failure.
func (f Form) Validate() error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if f.Phone == "" {
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}
	if f.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(f.Email) {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	if f.DeliveryType == DeliverDelivery && f.Address == "" {
		return &ValidationError{Field: "address", Message: "address is required for delivery"}
	}
	switch f.PaymentMethod {
	case PayCash, PayCard, PayOnline:
	default:
		return &ValidationError{Field: "payment_method", Message: "unknown payment method"}
	}
	switch f.DeliveryType {
	case DeliverPickup, DeliverDelivery:
	default:
		return &ValidationError{Field: "delivery_type", Message: "unknown delivery type"}
	}
	return nil
}

// Submitter places one branch order and returns its receipt.
type Submitter interface {
	Submit(ctx context.Context, req models.OrderRequest) (models.OrderReceipt, error)
}

// State is the per-attempt checkout lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrBusy reports a checkout attempt started while another is in flight.
var ErrBusy = errors.New("checkout: submission already in progress")

// ErrEmptyBranch reports a checkout against a branch holding no items.
var ErrEmptyBranch = errors.New("checkout: branch cart is empty")

// Result is the outcome of one checkout attempt.
type Result struct {
	Receipts []models.OrderReceipt `json:"receipts"`
	Total    float64               `json:"total"`
	Fee      float64               `json:"delivery_fee"`
	Final    float64               `json:"final_total"`
}

// Orchestrator drives a checkout attempt: validate the form, submit one order
// per target branch in sequence, and clear each branch's cart on its success.
// A failed submission aborts the remaining branches and leaves their carts
// intact.
type Orchestrator struct {
	mu        sync.Mutex
	state     State
	submitter Submitter
	userID    string
}

func New(submitter Submitter, userID string) *Orchestrator {
	return &Orchestrator{state: StateIdle, submitter: submitter, userID: userID}
}

// State reports the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateValidating || o.state == StateSubmitting {
		return ErrBusy
	}
	o.state = StateValidating
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// CheckoutBranch submits a single branch's cart. Delivery orders carry the
// flat delivery fee on top of the item total.
func (o *Orchestrator) CheckoutBranch(ctx context.Context, store *cartstore.Store, branchID int, form Form) (Result, error) {
	if err := o.begin(); err != nil {
		return Result{}, err
	}
	if err := form.Validate(); err != nil {
		o.setState(StateFailed)
		return Result{}, err
	}

	items := store.BranchItems(branchID)
	if len(items) == 0 {
		o.setState(StateFailed)
		return Result{}, ErrEmptyBranch
	}

	total := store.BranchTotal(branchID)
	fee := 0.0
	if form.DeliveryType == DeliverDelivery {
		fee = DeliveryFee
	}

	o.setState(StateSubmitting)
	receipt, err := o.submitBranch(ctx, store, branchID, items, form, fee, total+fee)
	if err != nil {
		o.setState(StateFailed)
		return Result{}, err
	}

	o.setState(StateSucceeded)
	return Result{
		Receipts: []models.OrderReceipt{receipt},
		Total:    total,
		Fee:      fee,
		Final:    total + fee,
	}, nil
}

// CheckoutAll submits one order per non-empty branch, in ascending branch-id
// order. No delivery fee is charged on this path; the order service adds tax
// per branch. The first failure aborts the rest.
func (o *Orchestrator) CheckoutAll(ctx context.Context, store *cartstore.Store, form Form) (Result, error) {
	if err := o.begin(); err != nil {
		return Result{}, err
	}
	if err := form.Validate(); err != nil {
		o.setState(StateFailed)
		return Result{}, err
	}

	branches := store.AllBranches()
	if len(branches) == 0 {
		o.setState(StateFailed)
		return Result{}, ErrEmptyBranch
	}

	o.setState(StateSubmitting)
	var result Result
	for _, branch := range branches {
		items := store.BranchItems(branch.BranchID)
		receipt, err := o.submitBranch(ctx, store, branch.BranchID, items, form, 0, branch.Total)
		if err != nil {
			o.setState(StateFailed)
			return result, fmt.Errorf("branch %d: %w", branch.BranchID, err)
		}
		result.Receipts = append(result.Receipts, receipt)
		result.Total += branch.Total
	}
	result.Final = result.Total

	o.setState(StateSucceeded)
	return result, nil
}

func (o *Orchestrator) submitBranch(ctx context.Context, store *cartstore.Store, branchID int, items []models.CartItem, form Form, fee, total float64) (models.OrderReceipt, error) {
	req := models.OrderRequest{
		UserID:   o.userID,
		BranchID: branchID,
		CustomerInfo: models.CustomerInfo{
			Name:    form.Name,
			Phone:   form.Phone,
			Email:   form.Email,
			Address: form.Address,
		},
		PaymentMethod: form.PaymentMethod,
		DeliveryType:  form.DeliveryType,
		DeliveryFee:   fee,
		TotalAmount:   total,
		OrderDate:     time.Now().UTC(),
	}
	if info := store.BranchInfo(branchID); info != nil {
		req.BranchName = info.BranchName
	}
	for _, it := range items {
		req.Items = append(req.Items, models.OrderItemRequest{
			MealID:              it.ID,
			MealName:            it.Name,
			MealPrice:           it.Price,
			Quantity:            it.Quantity,
			SpecialInstructions: form.SpecialInstructions,
		})
	}

	receipt, err := o.submitter.Submit(ctx, req)
	if err != nil {
		return models.OrderReceipt{}, err
	}
	store.Dispatch(ctx, cartstore.ClearBranch{BranchID: branchID})
	return receipt, nil
}
