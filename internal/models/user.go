package models

// User represents a registered account. Authentication lives outside this
// service; the fields here are what balance and credit computations need.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Name is the display name of the user.
	Name string

	// PhoneNumber is the E.164 number the account registered with. It is
	// the join key for pending-member reconciliation.
	PhoneNumber string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
