package reward

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reward represents a redeemable credit earned by a resident for a
// contributed collection. A reward is consumed whole at redemption time:
// once used flips to true it never flips back, and any value beyond the
// recorded used amount is forfeited.
type Reward struct {
	ID                 uuid.UUID  `json:"id"`
	ResidentID         uuid.UUID  `json:"resident_id"`
	SourceCollectionID uuid.UUID  `json:"source_collection_id"`
	Category           string     `json:"category"`
	Label              string     `json:"label"`
	Amount             int64      `json:"amount"` // Stored in cents/minor units
	Unit               string     `json:"unit"`   // Currency code of the credit
	EarnedDate         time.Time  `json:"earned_date"`
	Used               bool       `json:"used"`
	UsedAmount         int64      `json:"used_amount"`
	UsedDate           *time.Time `json:"used_date,omitempty"`
	UsedFor            string     `json:"used_for,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Rates is the crediting policy per waste category. Categories absent from
// the table earn nothing; a computed credit of zero produces no reward
// record at all.
type Rates struct {
	RatePerKg map[string]int64 // Minor units per kg
	Unit      string           // Currency code recorded on earned rewards
}

// Credit computes the earned amount for a collection, rounded to the
// smallest currency unit
func (r Rates) Credit(wasteCategory string, weightKg float64) int64 {
	rate, ok := r.RatePerKg[strings.ToLower(wasteCategory)]
	if !ok || rate == 0 {
		return 0
	}
	return int64(math.Round(float64(rate) * weightKg))
}

// NewReward creates the credit for a completed collection. Returns nil
// when the category/weight earns nothing; callers must skip persistence in
// that case rather than store a zero-value record.
func NewReward(residentID, collectionID uuid.UUID, wasteCategory string, weightKg float64, rates Rates, createdBy string, now time.Time) *Reward {
	amount := rates.Credit(wasteCategory, weightKg)
	if amount <= 0 {
		return nil
	}

	category := strings.ToLower(wasteCategory)
	return &Reward{
		ID:                 uuid.New(),
		ResidentID:         residentID,
		SourceCollectionID: collectionID,
		Category:           category,
		Label:              fmt.Sprintf("%s credit - %.1fkg", capitalize(category), weightKg),
		Amount:             amount,
		Unit:               rates.Unit,
		EarnedDate:         now,
		CreatedBy:          createdBy,
		CreatedAt:          now,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
