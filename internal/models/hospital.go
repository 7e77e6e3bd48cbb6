package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Hospital struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	Phone       string             `json:"phone" bson:"phone"`
	Address     string             `json:"address" bson:"address"`
	Latitude    float64            `json:"latitude" bson:"latitude"`
	Longitude   float64            `json:"longitude" bson:"longitude"`
	Email       string             `json:"email" bson:"email"`
	Website     string             `json:"website,omitempty" bson:"website,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
	DeletedAt   *time.Time         `json:"-" bson:"deleted_at,omitempty"`
}

type HospitalContact struct {
	Name    string `json:"name" bson:"name"`
	Phone   string `json:"phone" bson:"phone"`
	Email   string `json:"email" bson:"email"`
	Website string `json:"website,omitempty" bson:"website,omitempty"`
}

func (h *Hospital) Contact() HospitalContact {
	return HospitalContact{Name: h.Name, Phone: h.Phone, Email: h.Email, Website: h.Website}
}

type CreateHospitalRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"required,min=10"`
	Image       string  `json:"image,omitempty" validate:"omitempty,url"`
	Phone       string  `json:"phone" validate:"required,min=6,max=20"`
	Address     string  `json:"address" validate:"required,min=10"`
	Latitude    float64 `json:"latitude" validate:"latitude"`
	Longitude   float64 `json:"longitude" validate:"longitude"`
	Email       string  `json:"email" validate:"required,email"`
	Website     string  `json:"website,omitempty" validate:"omitempty,url"`
}

type UpdateHospitalRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=10"`
	Image       *string  `json:"image,omitempty" validate:"omitempty,url"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Address     *string  `json:"address,omitempty" validate:"omitempty,min=10"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,url"`
}
