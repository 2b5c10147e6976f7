package models

import "time"

// Event types recorded in the activity log.
const (
	EventUserRegister  = "user.register"
	EventListingCreate = "listing.create"
	EventListingUpdate = "listing.update"
	EventListingDelete = "listing.delete"
)

// Event represents an entry in a user's activity log.
type Event struct {
	ID        string    `json:"id" bson:"_id"`
	Type      string    `json:"type" bson:"type"`   // e.g., "listing.create"
	Level     string    `json:"level" bson:"level"` // e.g., "info", "warn"
	Message   string    `json:"message" bson:"message"`
	UserID    string    `json:"userId" bson:"userId"`
	ListingID *string   `json:"listingId,omitempty" bson:"listingId,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
