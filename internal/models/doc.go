// Package models defines the core domain models for Splitsettle.
//
// # Model Overview
//
//   - Expense: a shared cost paid by one participant and split across several
//   - Settlement: a recorded payment between two users, pending or completed
//   - CreditRecord: append-only audit entry for every credit score change
//   - Group: a set of registered members plus invited pending members
//   - PendingMember: an invitee identified only by phone number, not yet registered
//
// # Participants
//
// Balance-bearing references (expense payer, split entries, settlement ends)
// are ParticipantRefs: an ID plus a kind tag distinguishing registered users
// from pending members. Pending members take part in balance arithmetic
// exactly like registered users but can never be the endpoint of an actual
// money transfer until they register and are reconciled.
//
// # Design Principles
//
// 1. **Exact money**: all amounts are decimal.Decimal, never float64
// 2. **Avoid circular references**: relationships use ID strings, not pointers
// 3. **Append-only audit**: CreditRecords are created once and never mutated
package models
