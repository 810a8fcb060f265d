package service

import (
	"context"
	"io"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

// Store is the persistence contract of the core.  Read methods run outside
// of any transaction.  Every mutation goes through InTx.
//
// Lookups of a single entity return ErrNotFound when no row exists.
type Store interface {
	// InTx runs fn inside one database transaction.  The transaction is
	// committed when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	UserByID(ctx context.Context, id uint64) (model.User, error)
	ListingByID(ctx context.Context, id uint64) (model.Listing, error)
	IntentByID(ctx context.Context, id uint64) (model.PurchaseIntent, error)
	CategoryByID(ctx context.Context, id uint64) (model.Category, error)
	Categories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error

	CountListings(ctx context.Context, q ListingQuery) (int, error)
	FindListings(ctx context.Context, q ListingQuery, limit, offset int) ([]model.ListingCard, error)
	ListingsByOwner(ctx context.Context, ownerID uint64) ([]model.ListingCard, error)
	ListingImages(ctx context.Context, listingID uint64) ([]model.ListingImage, error)

	// FavoritedAmong returns the subset of listingIDs bookmarked by userID
	// in a single query.
	FavoritedAmong(ctx context.Context, userID uint64, listingIDs []uint64) (map[uint64]bool, error)
	FavoritesByUser(ctx context.Context, userID uint64) ([]model.FavoriteEntry, error)

	HasIntent(ctx context.Context, userID, listingID uint64) (bool, error)
	// IntentsSentBy lists intents expressed by userID; Counterpart is the
	// listing owner.
	IntentsSentBy(ctx context.Context, userID uint64) ([]model.IntentEntry, error)
	// IntentsReceivedBy lists intents on listings owned by ownerID;
	// Counterpart is the interested member.
	IntentsReceivedBy(ctx context.Context, ownerID uint64) ([]model.IntentEntry, error)

	CommentsByListing(ctx context.Context, listingID uint64) ([]model.CommentEntry, error)
}

// Tx is the transactional view used by mutating operations.  LockListing
// takes a row lock that is held until the transaction ends, which makes
// the listing row the serialization point for everything done to it.
type Tx interface {
	LockListing(ctx context.Context, id uint64) (model.Listing, error)
	// SetListingState writes status and partner in one statement.
	SetListingState(ctx context.Context, id uint64, status model.Status, partnerID *uint64) error
	InsertListing(ctx context.Context, l *model.Listing) error
	UpdateListingDetails(ctx context.Context, l model.Listing) error
	InsertImage(ctx context.Context, img *model.ListingImage) error
	SetMainImage(ctx context.Context, listingID, imageID uint64) error
	// DeleteListing removes the listing together with its images,
	// favorites, comments and intents and returns the image refs whose
	// binaries must be removed from the image store.
	DeleteListing(ctx context.Context, id uint64) ([]string, error)

	FindIntent(ctx context.Context, userID, listingID uint64) (model.PurchaseIntent, error)
	InsertIntent(ctx context.Context, in *model.PurchaseIntent) error
	DeleteIntent(ctx context.Context, id uint64) error

	FavoriteExists(ctx context.Context, userID, listingID uint64) (bool, error)
	// InsertFavorite returns ErrDuplicate when the pair already exists.
	InsertFavorite(ctx context.Context, userID, listingID uint64) error
	DeleteFavorite(ctx context.Context, userID, listingID uint64) error

	InsertComment(ctx context.Context, c *model.Comment) error

	ListingIDsByOwner(ctx context.Context, ownerID uint64) ([]uint64, error)
	// ReleasePartner clears userID as negotiating partner everywhere.
	// IN_TRANSACTION listings go back to FOR_SALE; SOLD listings stay SOLD.
	ReleasePartner(ctx context.Context, userID uint64) error
	// DeleteUser removes the user and the favorites, comments and intents
	// they authored.
	DeleteUser(ctx context.Context, id uint64) error
}

// ListingQuery is a fully validated listing search.
type ListingQuery struct {
	Filter
	Status         model.Status
	OrganizationID uint64
	ExcludeOwnerID uint64
}

// Notification is one templated message for a single recipient.
type Notification struct {
	To       string
	Template string
	Data     map[string]any
}

// Notifier delivers notifications.  Any returned error is treated as a
// delivery failure.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// EventPublisher forwards committed lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// ImageUpload is one image binary received from the presentation layer.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ImageDescriptor tells the image store where an upload belongs.
type ImageDescriptor struct {
	ListingOwnerID uint64
	DisplayOrder   uint8
}

// ImageStore persists image binaries.  Delete removes the binary behind a
// reference previously returned by Save.
type ImageStore interface {
	Save(ctx context.Context, img ImageUpload, dest ImageDescriptor) (string, error)
	Delete(ctx context.Context, ref string) error
}
