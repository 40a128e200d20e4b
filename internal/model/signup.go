package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the ISO-8601 calendar date layout used for signup dates.
const DateLayout = "2006-01-02"

// Category enumerates the two mutually exclusive event kinds.
type Category string

const (
	// CategoryPrimary is the main festivity.
	CategoryPrimary Category = "primary"
	// CategorySecondary is the fair.
	CategorySecondary Category = "secondary"
)

// legacyCategories maps category names written by older clients.
var legacyCategories = map[string]Category{
	"fiestas": CategoryPrimary,
	"ferias":  CategorySecondary,
}

// ParseCategory resolves a stored or requested category name, accepting legacy aliases.
func ParseCategory(s string) (Category, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Category(name) {
	case CategoryPrimary, CategorySecondary:
		return Category(name), true
	}
	c, ok := legacyCategories[name]
	return c, ok
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryPrimary || c == CategorySecondary
}

// CategorySet is the normalized category membership of a signup.
// New signups carry exactly one category; legacy rows may carry both.
type CategorySet uint8

const (
	setPrimary CategorySet = 1 << iota
	setSecondary
)

// NewCategorySet builds a set from the given categories, ignoring unknown values.
func NewCategorySet(categories ...Category) CategorySet {
	var s CategorySet
	for _, c := range categories {
		switch c {
		case CategoryPrimary:
			s |= setPrimary
		case CategorySecondary:
			s |= setSecondary
		}
	}
	return s
}

// Has reports whether c is a member of the set.
func (s CategorySet) Has(c Category) bool {
	return s&NewCategorySet(c) != 0
}

// Category returns the scalar category. For legacy rows with both members the
// primary category is returned.
func (s CategorySet) Category() Category {
	switch {
	case s&setPrimary != 0:
		return CategoryPrimary
	case s&setSecondary != 0:
		return CategorySecondary
	default:
		return ""
	}
}

// Empty reports whether the set has no members.
func (s CategorySet) Empty() bool {
	return s == 0
}

// StoredCategory is the category as found in a stored document: either the
// scalar field of current rows or the collection carried by legacy rows.
type StoredCategory struct {
	Scalar string
	Legacy []string
}

// Normalize converts the stored form into a CategorySet.
func (sc StoredCategory) Normalize() CategorySet {
	if sc.Scalar != "" {
		c, _ := ParseCategory(sc.Scalar)
		return NewCategorySet(c)
	}
	var s CategorySet
	for _, name := range sc.Legacy {
		if c, ok := ParseCategory(name); ok {
			s |= NewCategorySet(c)
		}
	}
	return s
}

// MealFlags holds the three independent meal selections.
type MealFlags struct {
	Lunch  bool `json:"lunch"`
	Midday bool `json:"midday"`
	Dinner bool `json:"dinner"`
}

// Any reports whether at least one meal is selected.
func (m MealFlags) Any() bool {
	return m.Lunch || m.Midday || m.Dinner
}

// Labels returns the selected meals in display order.
func (m MealFlags) Labels() []string {
	labels := make([]string, 0, 3)
	if m.Lunch {
		labels = append(labels, "lunch")
	}
	if m.Midday {
		labels = append(labels, "midday")
	}
	if m.Dinner {
		labels = append(labels, "dinner")
	}
	return labels
}

// Signup is a single attendance registration.
type Signup struct {
	ID          uuid.UUID
	OwnerID     string
	OwnerEmail  string
	DisplayName string
	Date        string
	Categories  CategorySet
	Meals       MealFlags
	Adults      int
	Children    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category returns the scalar category of the signup.
func (s Signup) Category() Category {
	return s.Categories.Category()
}

// OwnedBy reports whether the signup belongs to the identity. Only the
// owner id is considered; rows without one are not owned by anybody.
func (s Signup) OwnedBy(identity Identity) bool {
	return s.OwnerID != "" && s.OwnerID == identity.OwnerID
}

// Equal compares two signups field by field.
func (s Signup) Equal(o Signup) bool {
	return s.ID == o.ID &&
		s.OwnerID == o.OwnerID &&
		s.OwnerEmail == o.OwnerEmail &&
		s.DisplayName == o.DisplayName &&
		s.Date == o.Date &&
		s.Categories == o.Categories &&
		s.Meals == o.Meals &&
		s.Adults == o.Adults &&
		s.Children == o.Children &&
		s.CreatedAt.Equal(o.CreatedAt) &&
		s.UpdatedAt.Equal(o.UpdatedAt)
}

// Candidate is a signup submitted for creation.
// Field order matters: validation reports the first failing field.
type Candidate struct {
	Date     string    `json:"date" validate:"required,datetime=2006-01-02"`
	Category Category  `json:"category" validate:"required,oneof=primary secondary"`
	Meals    MealFlags `json:"meals"`
	Adults   int       `json:"adults" validate:"gte=0"`
	Children int       `json:"children" validate:"gte=0"`
}

// Identity is the caller as established by the identity provider.
type Identity struct {
	OwnerID    string
	OwnerEmail string
}

// Anonymous reports whether the identity carries no usable key.
func (i Identity) Anonymous() bool {
	return i.OwnerID == "" && i.OwnerEmail == ""
}

// OwnerField names the owner column used by a dedup lookup.
type OwnerField string

const (
	OwnerFieldID    OwnerField = "owner_id"
	OwnerFieldEmail OwnerField = "owner_email"
)

// DedupKey is the composite identity key of a signup.
type DedupKey struct {
	Field    OwnerField
	Owner    string
	Date     string
	Category Category
}

// MutableFields are the owner-editable parts of a signup.
type MutableFields struct {
	Meals    MealFlags
	Adults   int
	Children int
}

// Mutable extracts the owner-editable fields of the signup.
func (s Signup) Mutable() MutableFields {
	return MutableFields{Meals: s.Meals, Adults: s.Adults, Children: s.Children}
}

// Field names accepted by the edit controller.
const (
	FieldMealLunch  = "meals.lunch"
	FieldMealMidday = "meals.midday"
	FieldMealDinner = "meals.dinner"
	FieldAdults     = "adults"
	FieldChildren   = "children"
)
