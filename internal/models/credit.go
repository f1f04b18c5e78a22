package models

// Credit score bounds. Scores are clamped to this range no matter how many
// events a user accumulates.
const (
	ScoreMin = 300
	ScoreMax = 900

	// ScoreDefault is the score a freshly registered user starts with.
	ScoreDefault = 500

	// StreakBonusThreshold is the unbroken run of positive events that
	// triggers a consecutive bonus.
	StreakBonusThreshold = 5
)

// CreditReason identifies why a user's score changed.
type CreditReason string

const (
	ReasonOnTime           CreditReason = "on_time_settlement"   // settled within 24h
	ReasonWithin3Days      CreditReason = "settlement_within_3d" // settled within 3 days
	ReasonConsecutiveBonus CreditReason = "consecutive_bonus"    // 5 on-time in a row
	ReasonDelayedOver3     CreditReason = "delayed_gt3"          // >3 days late
	ReasonDelayedOver7     CreditReason = "delayed_gt7"          // >7 days late
	ReasonDelayedOver15    CreditReason = "delayed_gt15"         // >15 days pending
	ReasonReminderIgnored  CreditReason = "reminder_ignored"     // reminder not acted on
)

// scoreDeltas is the fixed reason-to-delta table. Not configurable at runtime.
var scoreDeltas = map[CreditReason]int{
	ReasonOnTime:           +10,
	ReasonWithin3Days:      +5,
	ReasonConsecutiveBonus: +20,
	ReasonDelayedOver3:     -15,
	ReasonDelayedOver7:     -25,
	ReasonDelayedOver15:    -40,
	ReasonReminderIgnored:  -10,
}

// Delta returns the raw score change for the reason and whether the reason is
// known.
func (r CreditReason) Delta() (int, bool) {
	d, ok := scoreDeltas[r]
	return d, ok
}

// ReasonFromDelay maps days of delay on a completing settlement to the single
// scoring reason that applies. Exactly one reason per completion, no stacking.
func ReasonFromDelay(daysDelayed int) CreditReason {
	switch {
	case daysDelayed <= 1:
		return ReasonOnTime
	case daysDelayed <= 3:
		return ReasonWithin3Days
	case daysDelayed <= 7:
		return ReasonDelayedOver3
	case daysDelayed <= 15:
		return ReasonDelayedOver7
	default:
		return ReasonDelayedOver15
	}
}

// CreditRecord is an append-only audit entry for one score mutation.
// For a non-empty RelatedSettlementID, at most one record may exist per
// (UserID, RelatedSettlementID, Reason) — except reminder_ignored, where every
// ignored reminder is a distinct record.
type CreditRecord struct {
	ID           string
	UserID       string
	OldScore     int
	NewScore     int
	ChangeAmount int
	Reason       CreditReason

	// RelatedSettlementID links the record to the settlement that caused
	// it; empty for events with no settlement context.
	RelatedSettlementID string

	// CreatedAt is the Unix timestamp when the record was appended.
	CreatedAt int64
}

// UserCredit is the per-user scoring state mutated by the credit engine.
type UserCredit struct {
	UserID string

	// Score is clamped to [ScoreMin, ScoreMax].
	Score int

	// ConsecutiveOnTime counts the unbroken streak of positive non-bonus
	// events. Reset by any penalty and by the bonus firing.
	ConsecutiveOnTime int
}

// CreditTier is a display label for a score band.
type CreditTier struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// TierForScore buckets a score into its display tier.
func TierForScore(score int) CreditTier {
	switch {
	case score >= 800:
		return CreditTier{Key: "excellent", Label: "Excellent", Color: "#22c55e"}
	case score >= 650:
		return CreditTier{Key: "good", Label: "Good", Color: "#3b82f6"}
	case score >= 500:
		return CreditTier{Key: "risky", Label: "Risky", Color: "#f59e0b"}
	default:
		return CreditTier{Key: "unreliable", Label: "Unreliable", Color: "#ef4444"}
	}
}
