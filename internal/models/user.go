package models

import (
	"time"
)

// User is the profile document at Users/{uid}.
type User struct {
	ID               UserID    `json:"id" firestore:"-"`
	UserName         string    `json:"user_name" firestore:"UserName"`
	Agreement        bool      `json:"agreement" firestore:"Agreement"`
	AgreementDate    time.Time `json:"agreement_date" firestore:"AgreementDate"`
	AuthStyle        string    `json:"auth_style" firestore:"AuthStyle"`
	RegistrationDate time.Time `json:"registration_date" firestore:"RegistrationDate"`
}

// UserFromData maps a Users/{uid} document onto a User.
func UserFromData(id UserID, data map[string]any) User {
	var u User
	decodeRecord(data, &u)
	u.ID = id
	return u
}
