package mongo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/repository"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNotFoundTranslatesNoDocuments(t *testing.T) {
	assert.ErrorIs(t, notFound(mongo.ErrNoDocuments), repository.ErrNotFound)
	assert.ErrorIs(t, notFound(fmt.Errorf("find: %w", mongo.ErrNoDocuments)), repository.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other))
}

func TestNormalizeListsStoresEmptyArrays(t *testing.T) {
	listing := &models.Listing{Title: "Civic"}
	normalizeLists(listing)

	raw, err := bson.Marshal(listing)
	assert.NoError(t, err)

	var doc bson.M
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, bson.A{}, doc["tags"])
	assert.Equal(t, bson.A{}, doc["images"])
}

func TestListingRoundTripsThroughBSON(t *testing.T) {
	in := models.Listing{
		ID:     "l-1",
		UserID: "u-1",
		Title:  "Model 3",
		Tags:   models.Tags{"ev", "sedan"},
		Images: []string{"https://img.example.com/1.jpg"},
	}
	raw, err := bson.Marshal(in)
	assert.NoError(t, err)

	var doc bson.M
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "l-1", doc["_id"])
	assert.Equal(t, "u-1", doc["userId"])

	var out models.Listing
	assert.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, in.Tags, out.Tags)
	assert.Equal(t, in.Images, out.Images)
}
