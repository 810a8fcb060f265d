package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

// Actor is the authenticated member on whose behalf an operation runs.
type Actor struct {
	UserID         uint64
	OrganizationID *uint64
	Staff          bool
}

// ActorFor builds the Actor of a loaded user.
func ActorFor(u model.User) Actor {
	return Actor{UserID: u.ID, OrganizationID: u.OrganizationID, Staff: u.IsStaff}
}

func (a Actor) inOrganization(orgID uint64) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// Service bundles the marketplace operations.  The zero value is not
// usable; construct it with New.
type Service struct {
	store    Store
	notifier Notifier
	events   EventPublisher
	images   ImageStore
	log      *zap.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the notification dispatcher.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithEvents sets the lifecycle event sink.
func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }

// WithImageStore sets the image binary store.
func WithImageStore(is ImageStore) Option { return func(s *Service) { s.images = is } }

// WithLogger sets the logger.  The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// New returns a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zap.NewNop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// visibleListing loads a listing and hides it unless the actor owns it or
// belongs to its organization.
func (s *Service) visibleListing(ctx context.Context, a Actor, id uint64) (model.Listing, error) {
	l, err := s.store.ListingByID(ctx, id)
	if err != nil {
		return model.Listing{}, err
	}
	if l.OwnerID != a.UserID && !a.inOrganization(l.OrganizationID) {
		return model.Listing{}, ErrNotFound
	}
	return l, nil
}

func (s *Service) lockVisible(ctx context.Context, tx Tx, a Actor, id uint64) (model.Listing, error) {
	l, err := tx.LockListing(ctx, id)
	if err != nil {
		return model.Listing{}, err
	}
	if l.OwnerID != a.UserID && !a.inOrganization(l.OrganizationID) {
		return model.Listing{}, ErrNotFound
	}
	return l, nil
}

// notify delivers one notification after a committed change.  Failures are
// logged and returned as a warning message; they never fail the caller.
func (s *Service) notify(ctx context.Context, recipientID uint64, template string, data map[string]any) []string {
	if s.notifier == nil {
		return nil
	}
	err := s.deliver(ctx, recipientID, template, data)
	if err == nil {
		return nil
	}
	var nde *NotificationDeliveryError
	if !errors.As(err, &nde) {
		nde = &NotificationDeliveryError{RecipientID: recipientID, Template: template, Err: err}
	}
	s.log.Warn("notification not delivered",
		zap.Uint64("recipient_id", recipientID),
		zap.String("template", template),
		zap.Error(nde))
	return []string{"notification could not be delivered: " + template}
}

func (s *Service) deliver(ctx context.Context, recipientID uint64, template string, data map[string]any) error {
	u, err := s.store.UserByID(ctx, recipientID)
	if err != nil {
		return err
	}
	data["recipient_name"] = u.PublicName()
	if err := s.notifier.Notify(ctx, Notification{To: u.Email, Template: template, Data: data}); err != nil {
		return &NotificationDeliveryError{RecipientID: recipientID, Template: template, Err: err}
	}
	return nil
}

// publish forwards a lifecycle event.  Broker failures are only logged.
func (s *Service) publish(ctx context.Context, typ queue.EventType, l model.Listing, actorID uint64, counterpart *uint64) {
	if s.events == nil {
		return
	}
	ev := queue.Event{
		Type:           typ,
		ListingID:      l.ID,
		ListingName:    l.Name,
		OrganizationID: l.OrganizationID,
		ActorID:        actorID,
		CounterpartID:  counterpart,
		OccurredAt:     s.now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("lifecycle event not published",
			zap.String("type", string(typ)),
			zap.Uint64("listing_id", l.ID),
			zap.Error(err))
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
