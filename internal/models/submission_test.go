package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validContact() Contact {
	return Contact{
		Name:    "Jane Roe",
		Email:   "jane.roe@example.com",
		Phone:   "5551234567",
		Message: "Please call me about solar.",
	}
}

func fieldsOf(err error) []string {
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make([]string, len(ve))
	for i, fe := range ve {
		fields[i] = fe.Field
	}
	return fields
}

func TestContactValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Contact)
		fields []string
	}{
		{"valid", func(c *Contact) {}, nil},
		{"short name", func(c *Contact) { c.Name = "J" }, []string{"name"}},
		{"whitespace name", func(c *Contact) { c.Name = "   " }, []string{"name"}},
		{"padded short name", func(c *Contact) { c.Name = "  J  " }, []string{"name"}},
		{"padded valid name", func(c *Contact) { c.Name = " Jo " }, nil},
		{"padded short message", func(c *Contact) { c.Message = "  hi   " }, []string{"message"}},
		{"bad email", func(c *Contact) { c.Email = "not-an-email" }, []string{"email"}},
		{"display-name email", func(c *Contact) { c.Email = "Jane <jane@example.com>" }, []string{"email"}},
		{"short phone", func(c *Contact) { c.Phone = "555-1234" }, []string{"phone"}},
		{"short message", func(c *Contact) { c.Message = "hi" }, []string{"message"}},
		{"everything wrong", func(c *Contact) { *c = Contact{} }, []string{"name", "email", "phone", "message"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContact()
			tt.mutate(&c)
			err := c.Validate()

			got := fieldsOf(err)
			if strings.Join(got, ",") != strings.Join(tt.fields, ",") {
				t.Errorf("invalid fields = %v, want %v (err: %v)", got, tt.fields, err)
			}
		})
	}
}

func TestConsultationValidate(t *testing.T) {
	c := Consultation{
		FirstName:    "John",
		LastName:     "Doe",
		Email:        "john.doe@example.com",
		Phone:        "5551234567",
		Address:      "123 Main St",
		City:         "Philadelphia",
		State:        "PA",
		ZipCode:      "19103",
		AgreeToTerms: true,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid consultation rejected: %v", err)
	}
	if c.FullName() != "John Doe" {
		t.Errorf("FullName() = %q", c.FullName())
	}

	c.ZipCode = "191"
	c.AgreeToTerms = false
	got := fieldsOf(c.Validate())
	if strings.Join(got, ",") != "zipCode,agreeToTerms" {
		t.Errorf("invalid fields = %v, want [zipCode agreeToTerms]", got)
	}

	c.ZipCode = "19103"
	c.AgreeToTerms = true
	c.FirstName = " "
	c.City = "\t"
	got = fieldsOf(c.Validate())
	if strings.Join(got, ",") != "firstName,city" {
		t.Errorf("blank required fields = %v, want [firstName city]", got)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{{Field: "name", Message: "too short"}, {Field: "email", Message: "bad"}}
	want := "validation failed: name: too short; email: bad"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStamp(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, loc)

	id1, at := Stamp(now)
	id2, _ := Stamp(now)

	if id1 == "" || id1 == id2 {
		t.Errorf("Stamp IDs should be unique and non-empty: %q %q", id1, id2)
	}
	if at.Location() != time.UTC || !at.Equal(now) {
		t.Errorf("Stamp time = %v, want %v in UTC", at, now)
	}
}
