package models

// Group represents a set of people who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Flatmates").
	Name string

	// Currency is a display label only; balances carry no currency logic.
	Currency string

	// MemberIDs are the registered users in this group.
	MemberIDs []string

	// PendingMemberIDs are invited members who have not registered yet.
	PendingMemberIDs []string

	// CreatedBy is the user who created the group.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID is a registered member of the group.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPendingMember reports whether pendingID is invited to the group.
func (g *Group) HasPendingMember(pendingID string) bool {
	for _, id := range g.PendingMemberIDs {
		if id == pendingID {
			return true
		}
	}
	return false
}

// PendingMemberStatus is the lifecycle state of an invited member.
type PendingMemberStatus string

const (
	// PendingInvited is the initial state: invited, not yet registered.
	PendingInvited PendingMemberStatus = "invited"

	// PendingResolved means the phone number registered and the member's
	// history was reconciled onto the new user identity.
	PendingResolved PendingMemberStatus = "resolved"

	// PendingRemoved means the invitee was removed before registering.
	PendingRemoved PendingMemberStatus = "removed"
)

// PendingMember is an invitee identified by phone number. It participates in
// balances like a user until the number registers, at which point
// reconciliation rewrites its history onto the new user and marks it resolved.
type PendingMember struct {
	ID          string
	PhoneNumber string
	DisplayName string

	// AddedBy is the user who invited this member.
	AddedBy string

	Status PendingMemberStatus

	// ResolvedToUserID is the user the member reconciled into, set when
	// Status becomes resolved.
	ResolvedToUserID string

	// ResolvedAt is the Unix timestamp of reconciliation, 0 until resolved.
	ResolvedAt int64

	// CreatedAt is the Unix timestamp when the invite was created.
	CreatedAt int64
}
