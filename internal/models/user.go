package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	Password     string             `json:"-" bson:"password,omitempty"`
	Name         string             `json:"name" bson:"name"`
	DOB          *time.Time         `json:"dob,omitempty" bson:"dob,omitempty"`
	PhoneNumber  string             `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Role         Role               `json:"role" bson:"role"`
	RefreshToken string             `json:"-" bson:"refresh_token,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
	DeletedAt    *time.Time         `json:"-" bson:"deleted_at,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserProfileUpdate struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	DOB         *time.Time `json:"dob,omitempty"`
	PhoneNumber *string    `json:"phone_number,omitempty" validate:"omitempty,min=8,max=20"`
}
