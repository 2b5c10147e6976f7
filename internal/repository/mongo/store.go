// Package mongo provides the MongoDB-backed repositories.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/query"
	"github.com/isdelr/carlist-be/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	listingsCollection = "cardetails"
	eventsCollection   = "events"
)

// Store implements the user, listing and event repositories over a MongoDB database.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	listings *mongo.Collection
	events   *mongo.Collection
	now      func() time.Time
}

// New binds the store to database dbName and ensures its indexes, including
// the unique index on users.email.
func New(ctx context.Context, client *mongo.Client, dbName string) (*Store, error) {
	db := client.Database(dbName)
	s := &Store{
		client:   client,
		users:    db.Collection(usersCollection),
		listings: db.Collection(listingsCollection),
		events:   db.Collection(eventsCollection),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.listings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create listings index: %w", err)
	}
	if _, err := s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	return nil
}

func (s *Store) Users() repository.UserRepository       { return s }
func (s *Store) Listings() repository.ListingRepository { return s }
func (s *Store) Events() repository.EventRepository     { return s }

// Ping checks the connection to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

// ---- users ----

// CreateUser inserts a user, assigning its ID and creation time.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = s.now()
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a single user by email, including the password hash.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByID retrieves a single user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ---- listings ----

// CreateListing inserts a listing, assigning its ID and timestamps.
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := s.now()
	listing.CreatedAt, listing.UpdatedAt = now, now
	normalizeLists(listing)

	if _, err := s.listings.InsertOne(ctx, listing); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetListingByID retrieves a single listing by its ID.
func (s *Store) GetListingByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.listings.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&listing); err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

// FindListings returns the listings matching q, newest first.
func (s *Store) FindListings(ctx context.Context, q query.ListingQuery) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.listings.Find(ctx, q.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	listings := []models.Listing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return listings, nil
}

// UpdateListing overwrites the editable fields of a listing and bumps updatedAt.
func (s *Store) UpdateListing(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = s.now()
	normalizeLists(listing)

	res, err := s.listings.UpdateByID(ctx, listing.ID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: listing.Title},
		{Key: "description", Value: listing.Description},
		{Key: "tags", Value: listing.Tags},
		{Key: "images", Value: listing.Images},
		{Key: "carType", Value: listing.CarType},
		{Key: "company", Value: listing.Company},
		{Key: "dealer", Value: listing.Dealer},
		{Key: "updatedAt", Value: listing.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteListing removes a listing.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	res, err := s.listings.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Empty lists are stored as [] rather than null so regex filters on tags behave.
func normalizeLists(listing *models.Listing) {
	if listing.Tags == nil {
		listing.Tags = models.Tags{}
	}
	if listing.Images == nil {
		listing.Images = []string{}
	}
}

// ---- events ----

// CreateEvent appends an event to the activity log.
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if _, err := s.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEventsByUser retrieves the most recent events of one user.
func (s *Store) ListEventsByUser(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.events.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// DeleteEventsBefore prunes events older than cutoff.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.events.DeleteMany(ctx, bson.D{{Key: "createdAt", Value: bson.D{{Key: "$lt", Value: cutoff}}}})
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.DeletedCount, nil
}

var _ repository.Store = (*Store)(nil)
