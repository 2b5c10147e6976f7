// Package query turns listing search filters into store queries.
//
// A ListingQuery is always scoped to one owner. Each clause is a disjunction of
// case-insensitive literal substring matches over one or more fields, and the
// clauses are combined by conjunction. User input never reaches a pattern
// engine unescaped: the Mongo rendering quotes regex metacharacters and the
// SQL rendering uses instr(), which has no pattern language.
//
// SQLite's lower() folds ASCII only, so the SQL rendering calls SQLFoldFunc,
// which the SQLite store registers with the driver as Fold.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxFilterLength is the longest accepted filter value, in characters.
const MaxFilterLength = 100

// SQLFoldFunc is the SQL function the SQL rendering uses to fold case.
const SQLFoldFunc = "carlist_fold"

// Fold is the case folding every rendering of a query agrees on.
func Fold(s string) string { return strings.ToLower(s) }

// Field names a filterable listing attribute.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldTags        Field = "tags"
	FieldCarType     Field = "carType"
	FieldCompany     Field = "company"
	FieldDealer      Field = "dealer"
)

// SearchFields are the fields free-text search looks at.
var SearchFields = []Field{FieldTitle, FieldDescription, FieldTags}

// ListingFilter is the raw filter input of a listing search.
type ListingFilter struct {
	OwnerID string
	Search  string
	CarType string
	Company string
	Dealer  string
}

// Clause matches when any of its fields contains Value, ignoring case.
type Clause struct {
	Fields []Field
	Value  string
}

// ListingQuery matches listings owned by OwnerID that satisfy every clause.
type ListingQuery struct {
	OwnerID string
	Clauses []Clause
}

// BuildListingQuery validates f and builds the query. Blank filters add no clause.
func BuildListingQuery(f ListingFilter) (ListingQuery, error) {
	owner := strings.TrimSpace(f.OwnerID)
	if owner == "" {
		return ListingQuery{}, apperrors.Validation("userId is required")
	}

	q := ListingQuery{OwnerID: owner}
	inputs := []struct {
		name   string
		value  string
		fields []Field
	}{
		{"search", f.Search, SearchFields},
		{"carType", f.CarType, []Field{FieldCarType}},
		{"company", f.Company, []Field{FieldCompany}},
		{"dealer", f.Dealer, []Field{FieldDealer}},
	}
	for _, in := range inputs {
		value := strings.TrimSpace(in.value)
		if value == "" {
			continue
		}
		if err := checkLiteral(in.name, value); err != nil {
			return ListingQuery{}, err
		}
		q.Clauses = append(q.Clauses, Clause{Fields: in.fields, Value: value})
	}
	return q, nil
}

func checkLiteral(name, value string) error {
	if !utf8.ValidString(value) {
		return apperrors.Validation(name + " must be valid UTF-8")
	}
	if utf8.RuneCountInString(value) > MaxFilterLength {
		return apperrors.Validation(fmt.Sprintf("%s must be at most %d characters", name, MaxFilterLength))
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return apperrors.Validation(name + " must not contain control characters")
		}
	}
	return nil
}

// Matches evaluates the query against an in-memory listing.
func (q ListingQuery) Matches(l models.Listing) bool {
	if l.UserID != q.OwnerID {
		return false
	}
	for _, c := range q.Clauses {
		if !c.matches(l) {
			return false
		}
	}
	return true
}

func (c Clause) matches(l models.Listing) bool {
	needle := Fold(c.Value)
	for _, f := range c.Fields {
		for _, v := range fieldValues(l, f) {
			if strings.Contains(Fold(v), needle) {
				return true
			}
		}
	}
	return false
}

func fieldValues(l models.Listing, f Field) []string {
	switch f {
	case FieldTitle:
		return []string{l.Title}
	case FieldDescription:
		return []string{l.Description}
	case FieldTags:
		return l.Tags
	case FieldCarType:
		return []string{l.CarType}
	case FieldCompany:
		return []string{l.Company}
	case FieldDealer:
		return []string{l.Dealer}
	}
	return nil
}

// BSON renders the query as a MongoDB filter document.
func (q ListingQuery) BSON() bson.D {
	filter := bson.D{{Key: "userId", Value: q.OwnerID}}
	if len(q.Clauses) == 0 {
		return filter
	}

	and := make(bson.A, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(c.Value), Options: "i"}
		if len(c.Fields) == 1 {
			and = append(and, bson.D{{Key: string(c.Fields[0]), Value: pattern}})
			continue
		}
		or := make(bson.A, 0, len(c.Fields))
		for _, f := range c.Fields {
			or = append(or, bson.D{{Key: string(f), Value: pattern}})
		}
		and = append(and, bson.D{{Key: "$or", Value: or}})
	}
	return append(filter, bson.E{Key: "$and", Value: and})
}

// sqlColumns maps fields onto the columns of the listings table.
var sqlColumns = map[Field]string{
	FieldTitle:       "title",
	FieldDescription: "description",
	FieldCarType:     "car_type",
	FieldCompany:     "company",
	FieldDealer:      "dealer",
}

// SQL renders the query as a WHERE expression over the listings table, with
// positional arguments.
func (q ListingQuery) SQL() (string, []any) {
	where := []string{"user_id = ?"}
	args := []any{q.OwnerID}

	for _, c := range q.Clauses {
		needle := Fold(c.Value)
		var or []string
		for _, f := range c.Fields {
			if f == FieldTags {
				or = append(or, "EXISTS (SELECT 1 FROM json_each(listings.tags_json) WHERE instr("+SQLFoldFunc+"(json_each.value), ?) > 0)")
			} else {
				or = append(or, "instr("+SQLFoldFunc+"("+sqlColumns[f]+"), ?) > 0")
			}
			args = append(args, needle)
		}
		if len(or) == 1 {
			where = append(where, or[0])
		} else {
			where = append(where, "("+strings.Join(or, " OR ")+")")
		}
	}
	return strings.Join(where, " AND "), args
}
