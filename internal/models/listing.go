package models

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxListingImages caps the number of image URLs stored on a listing.
const MaxListingImages = 10

// Listing represents a car advertised by a dealership user.
type Listing struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Tags        Tags      `json:"tags" bson:"tags"`
	CarType     string    `json:"carType" bson:"carType"`
	Company     string    `json:"company" bson:"company"`
	Dealer      string    `json:"dealer" bson:"dealer"`
	Images      []string  `json:"images" bson:"images"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Tags is an ordered tag list. It decodes from either a JSON array or a
// comma-separated string, since the web client sends both forms.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = NormalizeTags(list)
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	if joined == nil {
		*t = Tags{}
		return nil
	}
	*t = NormalizeTags(strings.Split(*joined, ","))
	return nil
}

// NormalizeTags trims every entry and drops empty ones, keeping order.
func NormalizeTags(raw []string) Tags {
	tags := make(Tags, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
