package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OTPPurpose string

const (
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

// OTP is a one-time code. A record is active while IsUsed is false and
// ExpiresAt has not passed; once used or expired it never becomes active again.
type OTP struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Purpose     OTPPurpose         `bson:"purpose" json:"purpose"`
	Code        string             `bson:"code" json:"-"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	IsUsed      bool               `bson:"is_used" json:"is_used"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// OTPSubject identifies whose codes an operation touches: a phone number for
// login codes, an email address for password-reset codes.
type OTPSubject struct {
	Purpose     OTPPurpose
	PhoneNumber string
	Email       string
}

func PhoneLogin(phone string) OTPSubject {
	return OTPSubject{Purpose: OTPPurposeLogin, PhoneNumber: phone}
}

func EmailReset(email string) OTPSubject {
	return OTPSubject{Purpose: OTPPurposeResetPassword, Email: email}
}

func (s OTPSubject) String() string {
	if s.PhoneNumber != "" {
		return string(s.Purpose) + ":" + s.PhoneNumber
	}
	return string(s.Purpose) + ":" + s.Email
}
