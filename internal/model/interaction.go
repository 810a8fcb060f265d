package model

import "time"

// Favorite is a member's bookmark of a listing.  (UserID, ListingID) is
// unique.
type Favorite struct {
	UserID    uint64    // favorites.user_id
	ListingID uint64    // favorites.listing_id
	CreatedAt time.Time // favorites.created_at
}

// PurchaseIntent records a member's interest in buying a listing.
// Several members may hold an intent on the same listing; only one of
// them can become its negotiating partner.
type PurchaseIntent struct {
	ID        uint64    `json:"id"`         // purchase_intents.id
	UserID    uint64    `json:"user_id"`    // purchase_intents.user_id
	ListingID uint64    `json:"listing_id"` // purchase_intents.listing_id
	CreatedAt time.Time `json:"created_at"` // purchase_intents.created_at
	UpdatedAt time.Time `json:"updated_at"` // purchase_intents.updated_at
}

// Comment is one message in a listing's discussion thread.
type Comment struct {
	ID        uint64    `json:"id"`         // comments.id
	UserID    uint64    `json:"user_id"`    // comments.user_id
	ListingID uint64    `json:"listing_id"` // comments.listing_id
	Body      string    `json:"body"`       // comments.body
	CreatedAt time.Time `json:"created_at"` // comments.created_at
	UpdatedAt time.Time `json:"updated_at"` // comments.updated_at
}

// DisplayStatus is the status label shown to one particular viewer of a
// listing.  "mine" means the viewer is the listing's negotiating partner.
type DisplayStatus string

const (
	DisplayForSale            DisplayStatus = "for_sale"
	DisplayInTransactionMine  DisplayStatus = "in_transaction_mine"
	DisplayInTransactionOther DisplayStatus = "in_transaction_other"
	DisplaySoldMine           DisplayStatus = "sold_mine"
	DisplaySoldOther          DisplayStatus = "sold_other"
)

// DeriveDisplayStatus computes the label of l as seen through the intent
// or favorite held by userID.
func DeriveDisplayStatus(l Listing, userID uint64) DisplayStatus {
	switch l.Status {
	case StatusInTransaction:
		if l.IsPartner(userID) {
			return DisplayInTransactionMine
		}
		return DisplayInTransactionOther
	case StatusSold:
		if l.IsPartner(userID) {
			return DisplaySoldMine
		}
		return DisplaySoldOther
	default:
		return DisplayForSale
	}
}

// ListingCard is a listing with the data needed to render it in a list.
type ListingCard struct {
	Listing
	MainImageRef *string `json:"main_image_ref"`
}

// FavoriteEntry is one row of a member's favorites page.
type FavoriteEntry struct {
	Listing       ListingCard   `json:"listing"`
	DisplayStatus DisplayStatus `json:"display_status"`
	CreatedAt     time.Time     `json:"favorited_at"`
}

// IntentEntry is one row of the sent or received intents page.  For sent
// intents Counterpart is the listing owner; for received intents it is
// the member who expressed the intent.
type IntentEntry struct {
	Intent        PurchaseIntent `json:"intent"`
	Listing       ListingCard    `json:"listing"`
	Counterpart   UserSummary    `json:"counterpart"`
	DisplayStatus DisplayStatus  `json:"display_status"`
}

// CommentEntry is a comment with its author's public name.
type CommentEntry struct {
	Comment
	Author UserSummary `json:"author"`
}
