package model

import "time"

// Reward categories.  These are catalog groupings, not earning
// categories; a redemption debit is tagged with the reward's category.
const (
	RewardMerchandise = "merchandise"
	RewardDigital     = "digital"
	RewardExperiences = "experiences"
)

// ValidRewardCategory reports whether s is one of the catalog categories.
func ValidRewardCategory(s string) bool {
	switch s {
	case RewardMerchandise, RewardDigital, RewardExperiences:
		return true
	}
	return false
}

// Reward mirrors the rewards table.  Quantity is the remaining stock and
// is only ever decremented by the redemption workflow; admin updates may
// restock it.  The column is unsigned and the decrement is conditional,
// so it can never go negative.
type Reward struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Quantity    int64     `json:"quantity"`
	Category    string    `json:"category"`
	IsActive    bool      `json:"is_active"`
	IsFeatured  bool      `json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
