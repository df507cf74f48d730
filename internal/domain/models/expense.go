// internal/domain/models/expense.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense categories.
const (
	CategoryFood          = "Alimentation"
	CategoryTransport     = "Transport"
	CategoryRestaurants   = "Restauration"
	CategoryEntertainment = "Divertissement"
	CategoryHealth        = "Santé"
	CategoryShopping      = "Shopping"
	CategoryEducation     = "Éducation"
	CategoryOther         = "Divers"
)

// Categories lists every accepted category in display order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryRestaurants,
	CategoryEntertainment,
	CategoryHealth,
	CategoryShopping,
	CategoryEducation,
	CategoryOther,
}

// MaxDescriptionLen bounds expense descriptions (in characters).
const MaxDescriptionLen = 200

// IsValidCategory reports whether c is one of Categories.
func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Expense is a single spending record. UserID never changes after creation;
// FamilyID is copied from the owner's family at creation time.
type Expense struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"userId"`
	FamilyID    *primitive.ObjectID `bson:"family_id" json:"familyId"`
	Description string              `bson:"description" json:"description"`
	Amount      float64             `bson:"amount" json:"amount"`
	Category    string              `bson:"category" json:"category"`
	Date        time.Time           `bson:"date" json:"date"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
