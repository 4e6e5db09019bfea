package models

import "time"

// Branch represents a physical restaurant location.
type Branch struct {
	ID        int       `json:"id" bson:"id"`
	Name      string    `json:"name" bson:"name"`
	Slug      string    `json:"slug" bson:"slug"`
	Location  string    `json:"location" bson:"location"`
	Lat       float64   `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng       float64   `json:"lng,omitempty" bson:"lng,omitempty"`
	ImageURL  string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	IsDefault bool      `json:"is_default" bson:"is_default"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Food is one menu entry of one branch.
type Food struct {
	ID          int       `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name"`
	Slug        string    `json:"slug" bson:"slug"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Category    string    `json:"category" bson:"category"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	BranchID    int       `json:"branch_id" bson:"branch_id"`
	Stock       int       `json:"stock,omitempty" bson:"stock,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}
