package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/service"
)

// Store bundles the repositories and implements service.Store.
type Store struct {
	db *sql.DB

	Users         *UserRepo
	Organizations *OrganizationRepo
	Tokens        *TokenRepo
	categories    *CategoryRepo
	listings      *ListingRepo
	images        *ImageRepo
	favorites     *FavoriteRepo
	intents       *IntentRepo
	comments      *CommentRepo
}

var _ service.Store = (*Store)(nil)

// NewStore wires every repository to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Organizations: NewOrganizationRepo(db),
		Tokens:        NewTokenRepo(db),
		categories:    NewCategoryRepo(db),
		listings:      NewListingRepo(db),
		images:        NewImageRepo(db),
		favorites:     NewFavoriteRepo(db),
		intents:       NewIntentRepo(db),
		comments:      NewCommentRepo(db),
	}
}

// InTx runs fn in a READ COMMITTED transaction.  Row locks taken through
// Tx.LockListing are released on commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translate(err, "begin")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &txStore{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "commit")
	}
	committed = true
	return nil
}

func (s *Store) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) ListingByID(ctx context.Context, id uint64) (model.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

func (s *Store) IntentByID(ctx context.Context, id uint64) (model.PurchaseIntent, error) {
	return s.intents.GetByID(ctx, id)
}

func (s *Store) CategoryByID(ctx context.Context, id uint64) (model.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	return s.categories.Create(ctx, c)
}

func (s *Store) CountListings(ctx context.Context, q service.ListingQuery) (int, error) {
	return s.listings.Count(ctx, q)
}

func (s *Store) FindListings(ctx context.Context, q service.ListingQuery, limit, offset int) ([]model.ListingCard, error) {
	return s.listings.Find(ctx, q, limit, offset)
}

func (s *Store) ListingsByOwner(ctx context.Context, ownerID uint64) ([]model.ListingCard, error) {
	return s.listings.ListByOwner(ctx, ownerID)
}

func (s *Store) ListingImages(ctx context.Context, listingID uint64) ([]model.ListingImage, error) {
	return s.images.ListByListing(ctx, listingID)
}

func (s *Store) FavoritedAmong(ctx context.Context, userID uint64, listingIDs []uint64) (map[uint64]bool, error) {
	return s.favorites.Among(ctx, userID, listingIDs)
}

func (s *Store) FavoritesByUser(ctx context.Context, userID uint64) ([]model.FavoriteEntry, error) {
	return s.favorites.ListByUser(ctx, userID)
}

func (s *Store) HasIntent(ctx context.Context, userID, listingID uint64) (bool, error) {
	return s.intents.Exists(ctx, userID, listingID)
}

func (s *Store) IntentsSentBy(ctx context.Context, userID uint64) ([]model.IntentEntry, error) {
	return s.intents.SentBy(ctx, userID)
}

func (s *Store) IntentsReceivedBy(ctx context.Context, ownerID uint64) ([]model.IntentEntry, error) {
	return s.intents.ReceivedBy(ctx, ownerID)
}

func (s *Store) CommentsByListing(ctx context.Context, listingID uint64) ([]model.CommentEntry, error) {
	return s.comments.ListByListing(ctx, listingID)
}

// txStore is the service.Tx view of one open transaction.
type txStore struct {
	s  *Store
	tx *sql.Tx
}

var _ service.Tx = (*txStore)(nil)

func (t *txStore) LockListing(ctx context.Context, id uint64) (model.Listing, error) {
	return t.s.listings.LockTx(ctx, t.tx, id)
}

func (t *txStore) SetListingState(ctx context.Context, id uint64, status model.Status, partnerID *uint64) error {
	return t.s.listings.SetStateTx(ctx, t.tx, id, status, partnerID)
}

func (t *txStore) InsertListing(ctx context.Context, l *model.Listing) error {
	return t.s.listings.CreateTx(ctx, t.tx, l)
}

func (t *txStore) UpdateListingDetails(ctx context.Context, l model.Listing) error {
	return t.s.listings.UpdateDetailsTx(ctx, t.tx, l)
}

func (t *txStore) InsertImage(ctx context.Context, img *model.ListingImage) error {
	return t.s.images.CreateTx(ctx, t.tx, img)
}

func (t *txStore) SetMainImage(ctx context.Context, listingID, imageID uint64) error {
	return t.s.listings.SetMainImageTx(ctx, t.tx, listingID, imageID)
}

func (t *txStore) DeleteListing(ctx context.Context, id uint64) ([]string, error) {
	return t.s.listings.DeleteTx(ctx, t.tx, id)
}

func (t *txStore) FindIntent(ctx context.Context, userID, listingID uint64) (model.PurchaseIntent, error) {
	return t.s.intents.FindTx(ctx, t.tx, userID, listingID)
}

func (t *txStore) InsertIntent(ctx context.Context, in *model.PurchaseIntent) error {
	return t.s.intents.CreateTx(ctx, t.tx, in)
}

func (t *txStore) DeleteIntent(ctx context.Context, id uint64) error {
	return t.s.intents.DeleteTx(ctx, t.tx, id)
}

func (t *txStore) FavoriteExists(ctx context.Context, userID, listingID uint64) (bool, error) {
	return t.s.favorites.ExistsTx(ctx, t.tx, userID, listingID)
}

func (t *txStore) InsertFavorite(ctx context.Context, userID, listingID uint64) error {
	return t.s.favorites.CreateTx(ctx, t.tx, userID, listingID)
}

func (t *txStore) DeleteFavorite(ctx context.Context, userID, listingID uint64) error {
	return t.s.favorites.DeleteTx(ctx, t.tx, userID, listingID)
}

func (t *txStore) InsertComment(ctx context.Context, c *model.Comment) error {
	return t.s.comments.CreateTx(ctx, t.tx, c)
}

func (t *txStore) ListingIDsByOwner(ctx context.Context, ownerID uint64) ([]uint64, error) {
	return t.s.listings.IDsByOwnerTx(ctx, t.tx, ownerID)
}

func (t *txStore) ReleasePartner(ctx context.Context, userID uint64) error {
	return t.s.listings.ReleasePartnerTx(ctx, t.tx, userID)
}

func (t *txStore) DeleteUser(ctx context.Context, id uint64) error {
	return t.s.Users.DeleteTx(ctx, t.tx, id)
}
