package models

import "time"

// Roles
const (
	RoleCustomer    = "customer"
	RoleBranchAdmin = "branch_admin"
	RoleSuperAdmin  = "super_admin"
)

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"-" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	FullName      string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	BranchID      int       `json:"branch_id,omitempty" bson:"branch_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin     time.Time `json:"last_login" bson:"last_login"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
}

// ProfileResponse is the user-facing profile shape.
type ProfileResponse struct {
	UserID      string   `json:"userid"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Address     string   `json:"address,omitempty"`
	Role        []string `json:"role"`
	BranchID    int      `json:"branch_id,omitempty"`
}
