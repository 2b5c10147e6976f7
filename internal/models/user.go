package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
