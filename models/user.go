package models

import (
	"time"
)

type Role string

const (
	UserRole  Role = "user"
	AdminRole Role = "admin"
)

type User struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null"`
	UserName         string    `json:"username"`
	Password         string    `json:"-"`
	Role             Role      `json:"role" gorm:"type:varchar(10);default:'user'"`
	StripeCustomerId string    `json:"stripeCustomerId"`
	IsActive         bool      `json:"isActive" gorm:"default:true"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserCreate is the registration payload
type UserCreate struct {
	Email    string `json:"email" binding:"required,email"`
	UserName string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// UserUpdate carries the mutable profile fields, nil means unchanged
type UserUpdate struct {
	Email    *string `json:"email"`
	UserName *string `json:"username"`
}

type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
