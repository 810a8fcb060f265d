package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

const (
	maxListingName        = 100
	maxListingDescription = 500
	maxCategoryName       = 50
)

// RawListingInput carries listing fields as received from a form.
type RawListingInput struct {
	Name        string
	Price       string
	CategoryID  string
	Size        string
	Condition   string
	Description string
}

// ListingInput holds validated editable listing fields.
type ListingInput struct {
	Name        string
	Price       uint32
	CategoryID  uint64
	Size        model.Size
	Condition   model.Condition
	Description string
}

// ParseListingInput validates form input.  Size defaults to NO_SIZE and
// condition to NO_VISIBLE_DAMAGE when left empty.
func ParseListingInput(raw RawListingInput) (ListingInput, error) {
	in := ListingInput{
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
		Size:        model.SizeNone,
		Condition:   model.DefaultCondition,
	}
	if in.Name == "" {
		return ListingInput{}, invalid("name", "name is required")
	}
	if utf8.RuneCountInString(in.Name) > maxListingName {
		return ListingInput{}, invalid("name", "name must be at most 100 characters")
	}
	p, err := strconv.ParseUint(strings.TrimSpace(raw.Price), 10, 32)
	if err != nil {
		return ListingInput{}, invalid("price", "price must be a non-negative integer")
	}
	in.Price = uint32(p)
	cid, err := strconv.ParseUint(strings.TrimSpace(raw.CategoryID), 10, 64)
	if err != nil || cid == 0 {
		return ListingInput{}, invalid("category_id", "category is required")
	}
	in.CategoryID = cid
	if v := strings.TrimSpace(raw.Size); v != "" {
		if in.Size, err = model.ParseSize(v); err != nil {
			return ListingInput{}, invalid("size", err.Error())
		}
	}
	if v := strings.TrimSpace(raw.Condition); v != "" {
		if in.Condition, err = model.ParseCondition(v); err != nil {
			return ListingInput{}, invalid("condition", err.Error())
		}
	}
	if utf8.RuneCountInString(in.Description) > maxListingDescription {
		return ListingInput{}, invalid("description", "description must be at most 500 characters")
	}
	return in, nil
}

func (s *Service) checkCategory(ctx context.Context, id uint64) error {
	if _, err := s.store.CategoryByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("category_id", "unknown category")
		}
		return err
	}
	return nil
}

// CreateListing puts a new item up for sale in the actor's organization.
// The main image is required; up to three secondary images are accepted.
// Binaries are stored first and removed again if the database write fails.
func (s *Service) CreateListing(ctx context.Context, a Actor, in ListingInput, main *ImageUpload, subs []ImageUpload) (model.Listing, error) {
	if a.OrganizationID == nil {
		return model.Listing{}, ErrAuthorization
	}
	if main == nil {
		return model.Listing{}, invalid("main_image", "main image is required")
	}
	if len(subs) > model.MaxSecondaryImages {
		return model.Listing{}, invalid("sub_images", "at most 3 secondary images are allowed")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return model.Listing{}, err
	}
	if s.images == nil {
		return model.Listing{}, errors.New("image store not configured")
	}

	uploads := append([]ImageUpload{*main}, subs...)
	refs := make([]string, 0, len(uploads))
	for i, up := range uploads {
		ref, err := s.images.Save(ctx, up, ImageDescriptor{ListingOwnerID: a.UserID, DisplayOrder: uint8(i)})
		if err != nil {
			s.discardImages(ctx, refs)
			return model.Listing{}, err
		}
		refs = append(refs, ref)
	}

	l := model.Listing{
		OwnerID:        a.UserID,
		OrganizationID: *a.OrganizationID,
		CategoryID:     in.CategoryID,
		Name:           in.Name,
		Price:          in.Price,
		Size:           in.Size,
		Condition:      in.Condition,
		Description:    in.Description,
		Status:         model.StatusForSale,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertListing(ctx, &l); err != nil {
			return err
		}
		for i, ref := range refs {
			img := model.ListingImage{ListingID: l.ID, Ref: ref, DisplayOrder: uint8(i)}
			if err := tx.InsertImage(ctx, &img); err != nil {
				return err
			}
			if i == model.MainImageOrder {
				if err := tx.SetMainImage(ctx, l.ID, img.ID); err != nil {
					return err
				}
				l.MainImageID = uint64Ptr(img.ID)
			}
		}
		return nil
	})
	if err != nil {
		s.discardImages(ctx, refs)
		return model.Listing{}, err
	}
	s.publish(ctx, queue.ListingCreated, l, a.UserID, nil)
	return l, nil
}

func (s *Service) discardImages(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.images.Delete(ctx, ref); err != nil {
			s.log.Warn("image binary not removed", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// UpdateListing changes the editable fields of the actor's listing.  The
// organization and the sale state are never touched here.
func (s *Service) UpdateListing(ctx context.Context, a Actor, id uint64, in ListingInput) (model.Listing, error) {
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return model.Listing{}, err
	}
	var out model.Listing
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := s.lockVisible(ctx, tx, a, id)
		if err != nil {
			return err
		}
		if l.OwnerID != a.UserID {
			return ErrAuthorization
		}
		l.Name, l.Price, l.CategoryID = in.Name, in.Price, in.CategoryID
		l.Size, l.Condition, l.Description = in.Size, in.Condition, in.Description
		if err := tx.UpdateListingDetails(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

// DeleteListing removes the actor's listing with everything attached to
// it, including image binaries.
func (s *Service) DeleteListing(ctx context.Context, a Actor, id uint64) error {
	var refs []string
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := s.lockVisible(ctx, tx, a, id)
		if err != nil {
			return err
		}
		if l.OwnerID != a.UserID {
			return ErrAuthorization
		}
		refs, err = tx.DeleteListing(ctx, l.ID)
		return err
	})
	if err != nil {
		return err
	}
	if s.images != nil {
		s.discardImages(ctx, refs)
	}
	return nil
}

// ListingDetail is everything shown on a listing's page.
type ListingDetail struct {
	Listing         model.Listing        `json:"listing"`
	Images          []model.ListingImage `json:"images"`
	Owner           model.UserSummary    `json:"owner"`
	Category        model.Category       `json:"category"`
	IsOwner         bool                 `json:"is_owner"`
	Favorited       bool                 `json:"favorited"`
	IntentExpressed bool                 `json:"intent_expressed"`
	DisplayStatus   model.DisplayStatus  `json:"display_status"`
	Comments        []model.CommentEntry `json:"comments"`
}

// GetListing loads a visible listing with its images, owner, the actor's
// favorite and intent flags and the comment thread.
func (s *Service) GetListing(ctx context.Context, a Actor, id uint64) (ListingDetail, error) {
	l, err := s.visibleListing(ctx, a, id)
	if err != nil {
		return ListingDetail{}, err
	}
	d := ListingDetail{
		Listing:       l,
		IsOwner:       l.OwnerID == a.UserID,
		DisplayStatus: model.DeriveDisplayStatus(l, a.UserID),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		imgs, err := s.store.ListingImages(gctx, l.ID)
		d.Images = imgs
		return err
	})
	g.Go(func() error {
		owner, err := s.store.UserByID(gctx, l.OwnerID)
		d.Owner = model.UserSummary{ID: owner.ID, Name: owner.PublicName()}
		return err
	})
	g.Go(func() error {
		c, err := s.store.CategoryByID(gctx, l.CategoryID)
		d.Category = c
		return err
	})
	g.Go(func() error {
		favs, err := s.store.FavoritedAmong(gctx, a.UserID, []uint64{l.ID})
		d.Favorited = favs[l.ID]
		return err
	})
	g.Go(func() error {
		ok, err := s.store.HasIntent(gctx, a.UserID, l.ID)
		d.IntentExpressed = ok
		return err
	})
	g.Go(func() error {
		cs, err := s.store.CommentsByListing(gctx, l.ID)
		d.Comments = cs
		return err
	})
	if err := g.Wait(); err != nil {
		return ListingDetail{}, err
	}
	return d, nil
}

// ListMyListings returns every listing the actor owns, newest first.
func (s *Service) ListMyListings(ctx context.Context, a Actor) ([]model.ListingCard, error) {
	return s.store.ListingsByOwner(ctx, a.UserID)
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.store.Categories(ctx)
}

// CreateCategory adds a category.  Staff only.
func (s *Service) CreateCategory(ctx context.Context, a Actor, name string) (model.Category, error) {
	if !a.Staff {
		return model.Category{}, ErrAuthorization
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCategoryName {
		return model.Category{}, invalid("name", "name must be 1 to 50 characters")
	}
	c := model.Category{Name: name}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.Category{}, invalid("name", "category already exists")
		}
		return model.Category{}, err
	}
	return c, nil
}

// DeleteAccount removes the actor and everything they own.  Listings the
// actor was negotiating for are released: IN_TRANSACTION ones return to
// FOR_SALE, SOLD ones keep their status without a partner.
func (s *Service) DeleteAccount(ctx context.Context, a Actor) error {
	var refs []string
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ids, err := tx.ListingIDsByOwner(ctx, a.UserID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.LockListing(ctx, id); err != nil {
				return err
			}
			r, err := tx.DeleteListing(ctx, id)
			if err != nil {
				return err
			}
			refs = append(refs, r...)
		}
		if err := tx.ReleasePartner(ctx, a.UserID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, a.UserID)
	})
	if err != nil {
		return err
	}
	if s.images != nil {
		s.discardImages(ctx, refs)
	}
	return nil
}
