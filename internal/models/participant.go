package models

import "fmt"

// ParticipantKind discriminates the two identity variants a balance-bearing
// reference can point at.
type ParticipantKind string

const (
	// KindUser is a registered, authenticated user.
	KindUser ParticipantKind = "user"

	// KindPending is an invited member known only by phone number.
	KindPending ParticipantKind = "pending_member"
)

// Valid reports whether k is one of the two known kinds.
func (k ParticipantKind) Valid() bool {
	return k == KindUser || k == KindPending
}

// ParticipantRef identifies a participant in a balance-bearing record.
// It is comparable and safe to use as a map key.
type ParticipantRef struct {
	ID   string
	Kind ParticipantKind
}

// UserRef builds a reference to a registered user.
func UserRef(id string) ParticipantRef {
	return ParticipantRef{ID: id, Kind: KindUser}
}

// PendingRef builds a reference to a pending member.
func PendingRef(id string) ParticipantRef {
	return ParticipantRef{ID: id, Kind: KindPending}
}

// IsPending reports whether the reference points at a not-yet-registered member.
func (r ParticipantRef) IsPending() bool {
	return r.Kind == KindPending
}

func (r ParticipantRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
