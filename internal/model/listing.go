package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status is the sale lifecycle state of a listing.  The only transitions
// are FOR_SALE -> IN_TRANSACTION -> SOLD.
type Status uint8

const (
	StatusForSale       Status = 1
	StatusInTransaction Status = 2
	StatusSold          Status = 3
)

var statusNames = map[Status]string{
	StatusForSale:       "FOR_SALE",
	StatusInTransaction: "IN_TRANSACTION",
	StatusSold:          "SOLD",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Valid reports whether s is one of the three defined states.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// HasPartner reports whether a listing in state s must reference a
// negotiating partner.
func (s Status) HasPartner() bool {
	return s == StatusInTransaction || s == StatusSold
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus accepts either the state name or its numeric code.
func ParseStatus(raw string) (Status, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for s, n := range statusNames {
		if n == raw {
			return s, nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= math.MaxUint8 && Status(n).Valid() {
		return Status(n), nil
	}
	return 0, fmt.Errorf("invalid status %q", raw)
}

// Size is a clothing size code.  NO_SIZE is the sentinel for items that
// have no meaningful size.
type Size uint16

const (
	SizeNone    Size = 0
	Size80      Size = 80
	Size90      Size = 90
	Size100     Size = 100
	Size110     Size = 110
	Size120     Size = 120
	Size130     Size = 130
	Size140     Size = 140
	Size140Plus Size = 141
	SizeS       Size = 201
	SizeM       Size = 202
	SizeL       Size = 203
	SizeFree    Size = 999
)

var sizeLabels = map[Size]string{
	SizeNone:    "none",
	Size80:      "80",
	Size90:      "90",
	Size100:     "100",
	Size110:     "110",
	Size120:     "120",
	Size130:     "130",
	Size140:     "140",
	Size140Plus: "140+",
	SizeS:       "S",
	SizeM:       "M",
	SizeL:       "L",
	SizeFree:    "Free",
}

// Label returns the human readable size label.
func (s Size) Label() string { return sizeLabels[s] }

// Valid reports whether s is a defined size code.
func (s Size) Valid() bool {
	_, ok := sizeLabels[s]
	return ok
}

// ParseSize accepts a numeric size code ("90") or a label ("M", "140+").
func ParseSize(raw string) (Size, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if s := Size(n); n >= 0 && n <= math.MaxUint16 && s.Valid() {
			return s, nil
		}
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	for s, l := range sizeLabels {
		if strings.EqualFold(l, raw) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("invalid size %q", raw)
}

// Condition grades an item from NEW (best) to POOR (worst).
type Condition uint8

const (
	ConditionNew             Condition = 1
	ConditionAlmostUnused    Condition = 2
	ConditionNoVisibleDamage Condition = 3
	ConditionSlightDamage    Condition = 4
	ConditionPoor            Condition = 5
)

// DefaultCondition is preselected when a listing is created.
const DefaultCondition = ConditionNoVisibleDamage

var conditionNames = map[Condition]string{
	ConditionNew:             "NEW",
	ConditionAlmostUnused:    "ALMOST_UNUSED",
	ConditionNoVisibleDamage: "NO_VISIBLE_DAMAGE",
	ConditionSlightDamage:    "SLIGHT_DAMAGE",
	ConditionPoor:            "POOR",
}

func (c Condition) String() string {
	if n, ok := conditionNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Condition(%d)", uint8(c))
}

// Valid reports whether c is a defined condition.
func (c Condition) Valid() bool {
	_, ok := conditionNames[c]
	return ok
}

// ParseCondition accepts the numeric code or the condition name.
func ParseCondition(raw string) (Condition, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if c := Condition(n); n > 0 && n <= math.MaxUint8 && c.Valid() {
			return c, nil
		}
		return 0, fmt.Errorf("invalid condition %q", raw)
	}
	for c, n := range conditionNames {
		if strings.EqualFold(n, raw) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid condition %q", raw)
}

// Listing is an item offered for sale by a member.  OrganizationID is
// copied from the owner at creation and never changes afterwards.
// PartnerID is set exactly when Status is IN_TRANSACTION or SOLD; after
// SOLD it records the buyer.  The one exception: deleting the buyer's
// account clears PartnerID on their SOLD listings, which stay SOLD.
type Listing struct {
	ID             uint64    `json:"id"`               // listings.id
	OwnerID        uint64    `json:"owner_id"`         // listings.owner_id
	OrganizationID uint64    `json:"organization_id"`  // listings.organization_id
	CategoryID     uint64    `json:"category_id"`      // listings.category_id
	Name           string    `json:"name"`             // listings.name
	Price          uint32    `json:"price"`            // listings.price
	Size           Size      `json:"size"`             // listings.size
	Condition      Condition `json:"condition"`        // listings.item_condition
	Description    string    `json:"description"`      // listings.description
	Status         Status    `json:"status"`           // listings.status
	PartnerID      *uint64   `json:"partner_id"`       // listings.partner_id (nullable)
	MainImageID    *uint64   `json:"main_image_id"`    // listings.main_image_id (nullable)
	CreatedAt      time.Time `json:"created_at"`       // listings.created_at
	UpdatedAt      time.Time `json:"updated_at"`       // listings.updated_at
}

// IsPartner reports whether userID is the listing's negotiating partner.
func (l Listing) IsPartner(userID uint64) bool {
	return l.PartnerID != nil && *l.PartnerID == userID
}

// ListingImage is one picture of a listing.  DisplayOrder 0 is the main
// image, 1..3 are the secondary images.
type ListingImage struct {
	ID           uint64    `json:"id"`            // listing_images.id
	ListingID    uint64    `json:"listing_id"`    // listing_images.listing_id
	Ref          string    `json:"ref"`           // listing_images.ref (image store reference)
	DisplayOrder uint8     `json:"display_order"` // listing_images.display_order
	CreatedAt    time.Time `json:"created_at"`    // listing_images.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // listing_images.updated_at
}

const (
	MainImageOrder     = 0
	MaxSecondaryImages = 3
)

// Category groups listings.  Names are unique.
type Category struct {
	ID   uint64 `json:"id"`   // categories.id
	Name string `json:"name"` // categories.name
}
