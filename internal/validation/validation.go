// Package validation checks decoded request bodies before they reach the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/models"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ListingRequest is the body of POST /create-item and PUT /products/{id}.
type ListingRequest struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Tags        models.Tags `json:"tags"`
	CarType     string      `json:"carType" validate:"max=100"`
	Company     string      `json:"company" validate:"max=100"`
	Dealer      string      `json:"dealer" validate:"max=100"`
	Images      []string    `json:"images" validate:"max=10,dive,required,url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt rejects passwords longer than 72 bytes.
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// Normalize trims the string fields of a request and lowercases emails.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
}

// Normalize trims the email and lowercases it.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Normalize trims the listing text fields and image URLs.
func (r *ListingRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.CarType = strings.TrimSpace(r.CarType)
	r.Company = strings.TrimSpace(r.Company)
	r.Dealer = strings.TrimSpace(r.Dealer)
	for i, img := range r.Images {
		r.Images[i] = strings.TrimSpace(img)
	}
}

// Struct validates s and reports the first failing rule as a validation error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Internal(err)
	}
	return apperrors.Validation(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Please enter a valid email"
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		if field == "password" {
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		if field == "password" {
			return fmt.Sprintf("Password must be at most %s bytes", fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
