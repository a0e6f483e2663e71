package models

import (
	"time"

	"geoquest-backend/internal/geo"
)

// User represents an adventurer mapped from a commerce customer
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Points             int       `json:"points"`
	ExternalCustomerID string    `json:"shopify_customer_id"`
	ShopDomain         string    `json:"shopify_shop_domain"`
	AvatarURL          *string   `json:"avatar_url,omitempty"`
	PushToken          *string   `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Place is a location or business partner with a check-in geofence
type Place struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radius_meters"`
	PointsReward int       `json:"points_reward"`
	CreatedAt    time.Time `json:"created_at"`
}

// Geofence returns the check-in fence around the place
func (p *Place) Geofence() geo.Geofence {
	return geo.Geofence{
		Center:       geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude},
		RadiusMeters: p.RadiusMeters,
	}
}

// PlaceKind distinguishes public locations from business partners
type PlaceKind string

const (
	KindLocation PlaceKind = "location"
	KindPartner  PlaceKind = "partner"
)

// NearbyPlace is a place annotated with its distance from a query point
type NearbyPlace struct {
	Place
	DistanceMeters float64 `json:"distance_meters"`
}

// CheckIn is an immutable presence claim and its outcome
type CheckIn struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	LocationID        *string   `json:"location_id,omitempty"`
	BusinessPartnerID *string   `json:"business_partner_id,omitempty"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	DistanceMeters    *float64  `json:"distance_meters"`
	PointsEarned      int       `json:"points_earned"`
	Verified          bool      `json:"verified"`
	CreatedAt         time.Time `json:"created_at"`

	LocationName *string `json:"location_name,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
}

type StepType string

const (
	StepPhoto    StepType = "photo"
	StepCheckIn  StepType = "checkin"
	StepQuestion StepType = "question"
	StepTask     StepType = "task"
)

// Valid reports whether t is a known step type
func (t StepType) Valid() bool {
	switch t {
	case StepPhoto, StepCheckIn, StepQuestion, StepTask:
		return true
	}
	return false
}

// Quest is a multi-step challenge with a completion bonus
type Quest struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	PointsReward int          `json:"points_reward"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	Steps        []*QuestStep `json:"steps,omitempty"`
}

// QuestStep belongs to exactly one quest
type QuestStep struct {
	ID               string   `json:"id"`
	QuestID          string   `json:"quest_id"`
	StepNumber       int      `json:"step_number"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	StepType         StepType `json:"step_type"`
	TargetLocationID *string  `json:"target_location_id,omitempty"`
	PointsReward     int      `json:"points_reward"`
	Answer           *string  `json:"-"`

	// Filled from the target location when read with the quest
	LocationName *string      `json:"location_name,omitempty"`
	Target       *geo.Geofence `json:"target,omitempty"`
}

type UserQuestStatus string

const (
	UserQuestActive    UserQuestStatus = "active"
	UserQuestCompleted UserQuestStatus = "completed"
)

// UserQuest tracks one user's run through one quest
type UserQuest struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	QuestID        string          `json:"quest_id"`
	Status         UserQuestStatus `json:"status"`
	CompletedSteps int             `json:"completed_steps"`
	TotalSteps     int             `json:"total_steps"`
	PointsEarned   int             `json:"points_earned"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// UserQuestProgress is a user quest joined with its quest for listing
type UserQuestProgress struct {
	UserQuest
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	QuestPointsReward  int     `json:"quest_points_reward"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// UserQuestStep records completion of one step in a user quest
type UserQuestStep struct {
	ID          string    `json:"id"`
	UserQuestID string    `json:"user_quest_id"`
	QuestStepID string    `json:"quest_step_id"`
	CheckInID   *string   `json:"checkin_id,omitempty"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// PointTransaction is one signed entry in a user's points history
type PointTransaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       int       `json:"amount"`
	Reason       string    `json:"reason"`
	ReferenceID  *string   `json:"reference_id,omitempty"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Photo represents uploaded photo metadata
type Photo struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CheckInID    *string   `json:"checkin_id,omitempty"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	PointsEarned int       `json:"points_earned"`
	CreatedAt    time.Time `json:"created_at"`
}

// Redemption records points exchanged for a discount code
type Redemption struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Points       int       `json:"points"`
	DiscountCode string    `json:"discount_code"`
	CreatedAt    time.Time `json:"created_at"`
}
