package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.listing(t, "Dress", 1100)

	res, err := f.svc.AddComment(ctx, ActorFor(f.buyer), l.ID, "  Is it still available?  ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Comment.Body != "Is it still available?" {
		t.Fatalf("body = %q", res.Comment.Body)
	}
	if got := f.notifier.templates(); len(got) != 1 || got[0] != "comment_posted" {
		t.Fatalf("notifications = %v", got)
	}

	if _, err := f.svc.AddComment(ctx, ActorFor(f.owner), l.ID, "Yes!"); err != nil {
		t.Fatal(err)
	}
	if n := len(f.notifier.templates()); n != 1 {
		t.Fatalf("owner's own comment notified: %d notifications", n)
	}

	thread, err := f.svc.ListComments(ctx, ActorFor(f.other), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 2 || thread[0].Author.ID != f.buyer.ID || thread[1].Author.ID != f.owner.ID {
		t.Fatalf("thread = %+v", thread)
	}
}

func TestAddCommentValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.listing(t, "Socks", 50)

	for name, body := range map[string]string{
		"empty":    "   ",
		"too long": strings.Repeat("a", maxCommentLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.AddComment(ctx, ActorFor(f.buyer), l.ID, body)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != "body" {
				t.Fatalf("err = %v, want body validation error", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err does not match ErrValidation")
			}
		})
	}
}

func TestCommentOnHiddenListing(t *testing.T) {
	f := newFixture(t)
	l := f.listing(t, "Belt", 80)
	outsider := f.store.addUser("outsider", 0)
	_, err := f.svc.AddComment(context.Background(), ActorFor(outsider), l.ID, "hello")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
