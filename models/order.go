package models

import "time"

// Order statuses
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderPreparing  = "preparing"
	OrderReady      = "ready"
	OrderOnDelivery = "on_delivery"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Order is a finalized order for a single branch.
type Order struct {
	OrderID         string    `json:"order_id" bson:"order_id"`
	OrderNumber     string    `json:"order_number" bson:"order_number"`
	UserID          string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	BranchID        int       `json:"branch_id" bson:"branch_id"`
	BranchName      string    `json:"branch_name,omitempty" bson:"branch_name,omitempty"`
	CustomerName    string    `json:"customer_name" bson:"customer_name"`
	CustomerPhone   string    `json:"customer_phone" bson:"customer_phone"`
	CustomerEmail   string    `json:"customer_email" bson:"customer_email"`
	DeliveryAddress string    `json:"delivery_address,omitempty" bson:"delivery_address,omitempty"`
	PaymentMethod   string    `json:"payment_method" bson:"payment_method"`
	DeliveryType    string    `json:"delivery_type" bson:"delivery_type"`
	TotalAmount     float64   `json:"total_amount" bson:"total_amount"`
	TaxAmount       float64   `json:"tax_amount" bson:"tax_amount"`
	FinalAmount     float64   `json:"final_amount" bson:"final_amount"`
	Status          string    `json:"status" bson:"status"`
	PaymentStatus   string    `json:"payment_status" bson:"payment_status"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// OrderItem is one persisted line of an order.
type OrderItem struct {
	OrderID             string    `json:"order_id" bson:"order_id"`
	MealID              int       `json:"meal_id" bson:"meal_id"`
	MealName            string    `json:"meal_name" bson:"meal_name"`
	MealPrice           float64   `json:"meal_price" bson:"meal_price"`
	Quantity            int       `json:"quantity" bson:"quantity"`
	Subtotal            float64   `json:"subtotal" bson:"subtotal"`
	SpecialInstructions string    `json:"special_instructions,omitempty" bson:"special_instructions,omitempty"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}

// CustomerInfo travels inside an order submission.
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
}

// OrderItemRequest is one line of an order submission.
type OrderItemRequest struct {
	MealID              int     `json:"meal_id"`
	MealName            string  `json:"meal_name"`
	MealPrice           float64 `json:"meal_price"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`
}

// OrderRequest is the order submission payload, one per branch.
type OrderRequest struct {
	UserID        string             `json:"user_id,omitempty"`
	BranchID      int                `json:"branch_id"`
	BranchName    string             `json:"branch_name,omitempty"`
	Items         []OrderItemRequest `json:"items"`
	CustomerInfo  CustomerInfo       `json:"customer_info"`
	PaymentMethod string             `json:"payment_method"`
	DeliveryType  string             `json:"delivery_type"`
	DeliveryFee   float64            `json:"delivery_fee,omitempty"`
	TotalAmount   float64            `json:"total_amount,omitempty"`
	OrderDate     time.Time          `json:"order_date,omitempty"`
}

// OrderReceipt is what a successful submission hands back.
type OrderReceipt struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}
