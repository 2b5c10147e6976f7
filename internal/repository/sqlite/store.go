// Package sqlite provides the SQLite-backed repositories.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/query"
	"github.com/isdelr/carlist-be/internal/repository"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(query.SQLFoldFunc, 1, foldText)
}

// foldText backs query.SQLFoldFunc. Non-text values pass through unchanged.
func foldText(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return query.Fold(v), nil
	case []byte:
		return query.Fold(string(v)), nil
	default:
		return v, nil
	}
}

// Store implements the user, listing and event repositories over one *sql.DB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }}
}

func (s *Store) Users() repository.UserRepository       { return s }
func (s *Store) Listings() repository.ListingRepository { return s }
func (s *Store) Events() repository.EventRepository     { return s }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(...interface{}) error }

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// ---- users ----

// CreateUser inserts a user, assigning its ID and creation time.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, toMillis(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a single user by email, including the password hash.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUserByID retrieves a single user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id)
	return scanUser(row)
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var created int64
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = fromMillis(created)
	return &user, nil
}

// ---- listings ----

const listingColumns = "id, user_id, title, description, tags_json, images_json, car_type, company, dealer, created_at, updated_at"

// CreateListing inserts a listing, assigning its ID and timestamps.
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := s.now()
	listing.CreatedAt, listing.UpdatedAt = now, now

	tagsJSON, imagesJSON, err := encodeLists(listing)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO listings ("+listingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		listing.ID, listing.UserID, listing.Title, listing.Description, tagsJSON, imagesJSON,
		listing.CarType, listing.Company, listing.Dealer, toMillis(now), toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetListingByID retrieves a single listing by its ID.
func (s *Store) GetListingByID(ctx context.Context, id string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindListings returns the listings matching q, newest first. Rows selected by
// the SQL rendering are checked again with q.Matches.
func (s *Store) FindListings(ctx context.Context, q query.ListingQuery) ([]models.Listing, error) {
	where, args := q.SQL()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE "+where+" ORDER BY created_at DESC, rowid DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		if !q.Matches(listing) {
			continue
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

// UpdateListing overwrites the editable fields of a listing and bumps updated_at.
func (s *Store) UpdateListing(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = s.now()
	tagsJSON, imagesJSON, err := encodeLists(listing)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE listings SET title = ?, description = ?, tags_json = ?, images_json = ?,
		                    car_type = ?, company = ?, dealer = ?, updated_at = ?
		WHERE id = ?`,
		listing.Title, listing.Description, tagsJSON, imagesJSON,
		listing.CarType, listing.Company, listing.Dealer, toMillis(listing.UpdatedAt), listing.ID)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return requireAffected(res)
}

// DeleteListing removes a listing.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM listings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func encodeLists(listing *models.Listing) (string, string, error) {
	tags := listing.Tags
	if tags == nil {
		tags = models.Tags{}
	}
	images := listing.Images
	if images == nil {
		images = []string{}
	}
	tagsBytes, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	imagesBytes, err := json.Marshal(images)
	if err != nil {
		return "", "", fmt.Errorf("encode images: %w", err)
	}
	return string(tagsBytes), string(imagesBytes), nil
}

func scanListing(row scanner) (models.Listing, error) {
	var l models.Listing
	var tagsJSON, imagesJSON string
	var created, updated int64
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &tagsJSON, &imagesJSON,
		&l.CarType, &l.Company, &l.Dealer, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("scan listing: %w", err)
	}
	l.CreatedAt, l.UpdatedAt = fromMillis(created), fromMillis(updated)

	l.Tags, l.Images = models.Tags{}, []string{}
	if err := json.Unmarshal([]byte(tagsJSON), &l.Tags); err != nil {
		return l, fmt.Errorf("decode tags of listing %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(imagesJSON), &l.Images); err != nil {
		return l, fmt.Errorf("decode images of listing %s: %w", l.ID, err)
	}
	return l, nil
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
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, user_id, listing_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.UserID, event.ListingID, toMillis(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEventsByUser retrieves the most recent events of one user.
func (s *Store) ListEventsByUser(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, user_id, listing_id, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var listingID sql.NullString
		var created int64
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.UserID, &listingID, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if listingID.Valid {
			event.ListingID = &listingID.String
		}
		event.CreatedAt = fromMillis(created)
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteEventsBefore prunes events older than cutoff.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

var _ repository.Store = (*Store)(nil)
