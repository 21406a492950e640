package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Submission kinds, used as storage partitions
const (
	KindContact      = "contact"
	KindConsultation = "consultation"
)

// FieldError describes one rejected form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every rejected field of a submission
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// minLength counts runes after trimming, so padding never satisfies a minimum
// and a blank required field is rejected
func (v *ValidationErrors) minLength(field, value string, n int, message string) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		v.add(field, message)
	}
}

func (v *ValidationErrors) email(field, value string) {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	// ParseAddress accepts "Name <a@b>"; only a bare address is a valid field value
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v.add(field, "Please enter a valid email address")
	}
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Contact is a message sent from the contact form
type Contact struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
}

// Validate checks the contact form rules
func (c *Contact) Validate() error {
	var errs ValidationErrors
	errs.minLength("name", c.Name, 2, "Name must be at least 2 characters")
	errs.email("email", c.Email)
	errs.minLength("phone", c.Phone, 10, "Please enter a valid phone number")
	errs.minLength("message", c.Message, 5, "Message must be at least 5 characters")
	return errs.orNil()
}

// RecordID implements submissions.Record
func (c *Contact) RecordID() string { return c.ID }

// RecordKind implements submissions.Record
func (c *Contact) RecordKind() string { return KindContact }

// RecordTime implements submissions.Record
func (c *Contact) RecordTime() time.Time { return c.CreatedAt }

// Consultation is a request for an in-home solar consultation
type Consultation struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipCode"`
	AgreeToTerms bool      `json:"agreeToTerms"`
}

// Validate checks the consultation form rules
func (c *Consultation) Validate() error {
	var errs ValidationErrors
	errs.minLength("firstName", c.FirstName, 1, "First name is required")
	errs.minLength("lastName", c.LastName, 1, "Last name is required")
	errs.email("email", c.Email)
	errs.minLength("phone", c.Phone, 10, "Please enter a valid phone number")
	errs.minLength("address", c.Address, 1, "Street address is required")
	errs.minLength("city", c.City, 1, "City is required")
	errs.minLength("state", c.State, 1, "State is required")
	errs.minLength("zipCode", c.ZipCode, 5, "Please enter a valid zip code")
	if !c.AgreeToTerms {
		errs.add("agreeToTerms", "You must agree to the terms and conditions")
	}
	return errs.orNil()
}

// FullName joins first and last name
func (c *Consultation) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// RecordID implements submissions.Record
func (c *Consultation) RecordID() string { return c.ID }

// RecordKind implements submissions.Record
func (c *Consultation) RecordKind() string { return KindConsultation }

// RecordTime implements submissions.Record
func (c *Consultation) RecordTime() time.Time { return c.CreatedAt }

// Stamp assigns a fresh ID and UTC creation time
func Stamp(now time.Time) (string, time.Time) {
	return uuid.New().String(), now.UTC()
}
