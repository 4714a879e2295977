package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a directory entry used to resolve phone numbers to people.
// The directory is owned by the wider platform; this service only reads it.
type Contact struct {
	ContactID uuid.UUID `json:"id" db:"contact_id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Mobile    string    `json:"mobile,omitempty" db:"mobile"`
	Email     string    `json:"email,omitempty" db:"email"`
	Company   string    `json:"company,omitempty" db:"company"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AnyNumber returns the contact's preferred dialable number.
func (c *Contact) AnyNumber() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.Mobile
}
