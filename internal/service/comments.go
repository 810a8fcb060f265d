package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

const maxCommentLength = 1000

// CommentResult is returned by AddComment.
type CommentResult struct {
	Comment  model.Comment `json:"comment"`
	Warnings []string      `json:"warnings,omitempty"`
}

// AddComment appends a comment to a listing's thread.  The listing owner
// is notified unless they wrote the comment themselves.
func (s *Service) AddComment(ctx context.Context, a Actor, listingID uint64, body string) (CommentResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return CommentResult{}, invalid("body", "comment must not be empty")
	}
	if utf8.RuneCountInString(body) > maxCommentLength {
		return CommentResult{}, invalid("body", "comment is too long")
	}
	l, err := s.visibleListing(ctx, a, listingID)
	if err != nil {
		return CommentResult{}, err
	}

	c := model.Comment{UserID: a.UserID, ListingID: l.ID, Body: body}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertComment(ctx, &c)
	})
	if err != nil {
		return CommentResult{}, err
	}

	res := CommentResult{Comment: c}
	if l.OwnerID != a.UserID {
		res.Warnings = s.notify(ctx, l.OwnerID, "comment_posted", map[string]any{
			"listing_id":   l.ID,
			"listing_name": l.Name,
			"comment":      c.Body,
		})
		s.publish(ctx, queue.CommentPosted, l, a.UserID, uint64Ptr(l.OwnerID))
	} else {
		s.publish(ctx, queue.CommentPosted, l, a.UserID, nil)
	}
	return res, nil
}

// ListComments returns a listing's thread in posting order.
func (s *Service) ListComments(ctx context.Context, a Actor, listingID uint64) ([]model.CommentEntry, error) {
	if _, err := s.visibleListing(ctx, a, listingID); err != nil {
		return nil, err
	}
	return s.store.CommentsByListing(ctx, listingID)
}
