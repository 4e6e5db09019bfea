package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"sufra/db"
	"sufra/globals"
	"sufra/models"
	"sufra/mq"
	"sufra/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaxRate is applied by the order service to every branch order.
const TaxRate = 0.09

var ErrInvalidOrder = errors.New("orders: invalid order request")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder validates a submission, prices it, and persists the order with
// its line items. The total is recomputed server-side from the line items plus
// the delivery fee; client-sent totals are ignored.
func CreateOrder(ctx context.Context, req models.OrderRequest) (models.OrderReceipt, error) {
	if req.BranchID <= 0 || len(req.Items) == 0 {
		return models.OrderReceipt{}, ErrInvalidOrder
	}
	if req.CustomerInfo.Name == "" || req.CustomerInfo.Phone == "" || req.CustomerInfo.Email == "" {
		return models.OrderReceipt{}, ErrInvalidOrder
	}

	var total float64
	for _, it := range req.Items {
		if it.MealID <= 0 || it.Quantity <= 0 || it.MealPrice < 0 {
			return models.OrderReceipt{}, ErrInvalidOrder
		}
		total += it.MealPrice * float64(it.Quantity)
	}
	total = round2(total + req.DeliveryFee)
	tax := round2(total * TaxRate)

	now := time.Now().UTC()
	order := models.Order{
		OrderID:         uuid.New().String(),
		OrderNumber:     "ORD" + utils.GenerateRandomDigitString(6),
		UserID:          req.UserID,
		BranchID:        req.BranchID,
		BranchName:      req.BranchName,
		CustomerName:    req.CustomerInfo.Name,
		CustomerPhone:   req.CustomerInfo.Phone,
		CustomerEmail:   req.CustomerInfo.Email,
		DeliveryAddress: req.CustomerInfo.Address,
		PaymentMethod:   req.PaymentMethod,
		DeliveryType:    req.DeliveryType,
		TotalAmount:     total,
		TaxAmount:       tax,
		FinalAmount:     round2(total + tax),
		Status:          models.OrderPending,
		PaymentStatus:   "unpaid",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := db.OrdersCollection.InsertOne(ctx, order); err != nil {
		return models.OrderReceipt{}, fmt.Errorf("insert order: %w", err)
	}

	lines := make([]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, models.OrderItem{
			OrderID:             order.OrderID,
			MealID:              it.MealID,
			MealName:            it.MealName,
			MealPrice:           it.MealPrice,
			Quantity:            it.Quantity,
			Subtotal:            round2(it.MealPrice * float64(it.Quantity)),
			SpecialInstructions: it.SpecialInstructions,
			CreatedAt:           now,
		})
	}
	if _, err := db.OrderItemsCollection.InsertMany(ctx, lines); err != nil {
		// The order header exists; losing lines is worse than a duplicate retry.
		return models.OrderReceipt{}, fmt.Errorf("insert order items: %w", err)
	}

	mq.Emit(ctx, mq.OrderEvent{
		Event:       mq.EventOrderCreated,
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		BranchID:    order.BranchID,
		Status:      order.Status,
	})

	return models.OrderReceipt{OrderID: order.OrderID, OrderNumber: order.OrderNumber}, nil
}

// Service adapts CreateOrder to the checkout submitter contract.
type Service struct{}

func (Service) Submit(ctx context.Context, req models.OrderRequest) (models.OrderReceipt, error) {
	return CreateOrder(ctx, req)
}

// callerUserID returns the authenticated user id on the context, or "" for
// guests.
func callerUserID(ctx context.Context) string {
	userID, _ := ctx.Value(globals.UserIDKey).(string)
	return userID
}

// decodeOrderRequest parses a submission body and stamps it with the caller's
// identity. Attribution always comes from the context, so a guest payload
// cannot claim another user's id.
func decodeOrderRequest(r *http.Request) (models.OrderRequest, error) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.OrderRequest{}, err
	}
	req.UserID = callerUserID(r.Context())
	return req, nil
}

// PlaceOrder accepts a direct order submission. Guests may order.
func PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeOrderRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := CreateOrder(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidOrder) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid order request")
			return
		}
		log.Println("orders: create failed:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to place order")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success":      true,
		"order_id":     receipt.OrderID,
		"order_number": receipt.OrderNumber,
	})
}

// scopeFilter narrows an order query to what the caller may see: super admins
// see everything, branch admins their branch, customers their own orders.
func scopeFilter(ctx context.Context) (bson.M, error) {
	userID := callerUserID(ctx)
	roles, _ := ctx.Value(globals.RoleKey).([]string)

	for _, role := range roles {
		if role == models.RoleSuperAdmin {
			return bson.M{}, nil
		}
	}
	for _, role := range roles {
		if role == models.RoleBranchAdmin {
			var user models.User
			err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
			if err != nil {
				return nil, fmt.Errorf("branch admin profile lookup: %w", err)
			}
			return bson.M{"branch_id": user.BranchID}, nil
		}
	}
	return bson.M{"user_id": userID}, nil
}

// GetOrders lists orders visible to the caller, newest first. Optional
// filters: ?status=..., and ?branch_id=... for super admins.
func GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := scopeFilter(r.Context())
	if err != nil {
		log.Println("orders: scope failed:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	if branchID := r.URL.Query().Get("branch_id"); branchID != "" {
		if _, scoped := filter["branch_id"]; !scoped {
			var id int
			if _, err := fmt.Sscanf(branchID, "%d", &id); err == nil {
				filter["branch_id"] = id
			}
		}
	}

	cursor, err := db.OrdersCollection.Find(r.Context(), filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(200))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	defer cursor.Close(r.Context())

	orders := []models.Order{}
	if err := cursor.All(r.Context(), &orders); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orders)
}

func findOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// canSeeOrder applies the same scoping as GetOrders to a single order.
func canSeeOrder(ctx context.Context, order *models.Order) bool {
	filter, err := scopeFilter(ctx)
	if err != nil {
		return false
	}
	if branchID, ok := filter["branch_id"].(int); ok {
		return order.BranchID == branchID
	}
	if userID, ok := filter["user_id"].(string); ok {
		return order.UserID == userID
	}
	return true
}

// GetOrder returns one order by id.
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := findOrder(r.Context(), ps.ByName("orderid"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if !canSeeOrder(r.Context(), order) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// GetOrderItems returns an order's line items in insertion order.
func GetOrderItems(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := findOrder(r.Context(), ps.ByName("orderid"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if !canSeeOrder(r.Context(), order) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}

	items, err := utils.FindAndDecode[models.OrderItem](r.Context(), db.OrderItemsCollection,
		bson.M{"order_id": order.OrderID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch order items")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

var validStatuses = map[string]bool{
	models.OrderPending:    true,
	models.OrderConfirmed:  true,
	models.OrderPreparing:  true,
	models.OrderReady:      true,
	models.OrderOnDelivery: true,
	models.OrderDelivered:  true,
	models.OrderCancelled:  true,
}

// UpdateOrderStatus moves an order to a new status. Branch admins may only
// touch their own branch's orders.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validStatuses[body.Status] {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	order, err := findOrder(r.Context(), ps.ByName("orderid"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if !canSeeOrder(r.Context(), order) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your branch's order")
		return
	}

	_, err = db.OrdersCollection.UpdateOne(r.Context(),
		bson.M{"order_id": order.OrderID},
		bson.M{"$set": bson.M{"status": body.Status, "updated_at": time.Now().UTC()}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	mq.Emit(r.Context(), mq.OrderEvent{
		Event:       mq.EventOrderStatusChanged,
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		BranchID:    order.BranchID,
		Status:      body.Status,
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "status": body.Status})
}
