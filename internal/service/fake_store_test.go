package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

type favKey struct{ user, listing uint64 }

type memData struct {
	users      map[uint64]model.User
	categories map[uint64]model.Category
	listings   map[uint64]model.Listing
	images     map[uint64]model.ListingImage
	intents    map[uint64]model.PurchaseIntent
	favorites  map[favKey]time.Time
	comments   map[uint64]model.Comment
	nextID     uint64
	clock      time.Time
}

func (d *memData) clone() memData {
	c := *d
	c.users = cloneMap(d.users)
	c.categories = cloneMap(d.categories)
	c.listings = cloneMap(d.listings)
	c.images = cloneMap(d.images)
	c.intents = cloneMap(d.intents)
	c.favorites = cloneMap(d.favorites)
	c.comments = cloneMap(d.comments)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memStore is an in-memory Store.  Transactions are serialized by txMu
// and rolled back by restoring a snapshot taken when they began.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    memData

	failInsertImage error
}

func newMemStore() *memStore {
	return &memStore{d: memData{
		users:      map[uint64]model.User{},
		categories: map[uint64]model.Category{},
		listings:   map[uint64]model.Listing{},
		images:     map[uint64]model.ListingImage{},
		intents:    map[uint64]model.PurchaseIntent{},
		favorites:  map[favKey]time.Time{},
		comments:   map[uint64]model.Comment{},
		clock:      time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	}}
}

// id and tick must be called with mu held.
func (m *memStore) id() uint64 {
	m.d.nextID++
	return m.d.nextID
}

func (m *memStore) tick() time.Time {
	m.d.clock = m.d.clock.Add(time.Second)
	return m.d.clock
}

// seeding helpers

func (m *memStore) addUser(name string, orgID uint64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: m.id(), Email: name + "@example.com", Name: name, IsActive: true}
	if orgID != 0 {
		u.OrganizationID = uint64Ptr(orgID)
	}
	m.d.users[u.ID] = u
	return u
}

func (m *memStore) addCategory(name string) model.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := model.Category{ID: m.id(), Name: name}
	m.d.categories[c.ID] = c
	return c
}

func (m *memStore) addListing(l model.Listing) model.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	if l.Status == 0 {
		l.Status = model.StatusForSale
	}
	l.CreatedAt = m.tick()
	l.UpdatedAt = l.CreatedAt
	m.d.listings[l.ID] = l
	return l
}

func (m *memStore) listing(id uint64) model.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.listings[id]
}

func (m *memStore) counts() (listings, images, intents, favorites, comments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.d.listings), len(m.d.images), len(m.d.intents), len(m.d.favorites), len(m.d.comments)
}

// Store

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	snap := m.d.clone()
	m.mu.Unlock()
	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.d = snap
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) UserByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.d.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) ListingByID(_ context.Context, id uint64) (model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.d.listings[id]
	if !ok {
		return model.Listing{}, ErrNotFound
	}
	return l, nil
}

func (m *memStore) IntentByID(_ context.Context, id uint64) (model.PurchaseIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.d.intents[id]
	if !ok {
		return model.PurchaseIntent{}, ErrNotFound
	}
	return in, nil
}

func (m *memStore) CategoryByID(_ context.Context, id uint64) (model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.d.categories[id]
	if !ok {
		return model.Category{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) Categories(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Category, 0, len(m.d.categories))
	for _, c := range m.d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.d.categories {
		if x.Name == c.Name {
			return ErrDuplicate
		}
	}
	c.ID = m.id()
	m.d.categories[c.ID] = *c
	return nil
}

func (m *memStore) match(q ListingQuery) []model.Listing {
	var out []model.Listing
	kw := strings.ToLower(q.Keyword)
	for _, l := range m.d.listings {
		if l.Status != q.Status || l.OrganizationID != q.OrganizationID || l.OwnerID == q.ExcludeOwnerID {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(l.Name), kw) && !strings.Contains(strings.ToLower(l.Description), kw) {
			continue
		}
		if len(q.CategoryIDs) > 0 && !contains(q.CategoryIDs, l.CategoryID) {
			continue
		}
		if q.PriceMin != nil && l.Price < *q.PriceMin {
			continue
		}
		if q.PriceMax != nil && l.Price > *q.PriceMax {
			continue
		}
		if len(q.Sizes) > 0 && !contains(q.Sizes, l.Size) {
			continue
		}
		if len(q.Conditions) > 0 && !contains(q.Conditions, l.Condition) {
			continue
		}
		out = append(out, l)
	}
	newestFirst(out)
	return out
}

func contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func newestFirst(ls []model.Listing) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
		return ls[i].ID > ls[j].ID
	})
}

func (m *memStore) card(l model.Listing) model.ListingCard {
	c := model.ListingCard{Listing: l}
	if l.MainImageID != nil {
		if img, ok := m.d.images[*l.MainImageID]; ok {
			ref := img.Ref
			c.MainImageRef = &ref
		}
	}
	return c
}

func (m *memStore) CountListings(_ context.Context, q ListingQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.match(q)), nil
}

func (m *memStore) FindListings(_ context.Context, q ListingQuery, limit, offset int) ([]model.ListingCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls := m.match(q)
	if offset >= len(ls) {
		return nil, nil
	}
	ls = ls[offset:]
	if len(ls) > limit {
		ls = ls[:limit]
	}
	out := make([]model.ListingCard, len(ls))
	for i, l := range ls {
		out[i] = m.card(l)
	}
	return out, nil
}

func (m *memStore) ListingsByOwner(_ context.Context, ownerID uint64) ([]model.ListingCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ls []model.Listing
	for _, l := range m.d.listings {
		if l.OwnerID == ownerID {
			ls = append(ls, l)
		}
	}
	newestFirst(ls)
	out := make([]model.ListingCard, len(ls))
	for i, l := range ls {
		out[i] = m.card(l)
	}
	return out, nil
}

func (m *memStore) ListingImages(_ context.Context, listingID uint64) ([]model.ListingImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ListingImage
	for _, img := range m.d.images {
		if img.ListingID == listingID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *memStore) FavoritedAmong(_ context.Context, userID uint64, listingIDs []uint64) (map[uint64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uint64]bool{}
	for _, id := range listingIDs {
		if _, ok := m.d.favorites[favKey{userID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memStore) FavoritesByUser(_ context.Context, userID uint64) ([]model.FavoriteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FavoriteEntry
	for k, at := range m.d.favorites {
		if k.user == userID {
			out = append(out, model.FavoriteEntry{Listing: m.card(m.d.listings[k.listing]), CreatedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) HasIntent(_ context.Context, userID, listingID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.findIntent(userID, listingID)
	return err == nil, nil
}

func (m *memStore) intentEntries(keep func(model.PurchaseIntent, model.Listing) bool, counterpart func(model.PurchaseIntent, model.Listing) uint64) []model.IntentEntry {
	var out []model.IntentEntry
	for _, in := range m.d.intents {
		l := m.d.listings[in.ListingID]
		if !keep(in, l) {
			continue
		}
		u := m.d.users[counterpart(in, l)]
		out = append(out, model.IntentEntry{
			Intent:      in,
			Listing:     m.card(l),
			Counterpart: model.UserSummary{ID: u.ID, Name: u.PublicName()},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Intent.ID > out[j].Intent.ID })
	return out
}

func (m *memStore) IntentsSentBy(_ context.Context, userID uint64) ([]model.IntentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intentEntries(
		func(in model.PurchaseIntent, _ model.Listing) bool { return in.UserID == userID },
		func(_ model.PurchaseIntent, l model.Listing) uint64 { return l.OwnerID },
	), nil
}

func (m *memStore) IntentsReceivedBy(_ context.Context, ownerID uint64) ([]model.IntentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intentEntries(
		func(_ model.PurchaseIntent, l model.Listing) bool { return l.OwnerID == ownerID },
		func(in model.PurchaseIntent, _ model.Listing) uint64 { return in.UserID },
	), nil
}

func (m *memStore) CommentsByListing(_ context.Context, listingID uint64) ([]model.CommentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CommentEntry
	for _, c := range m.d.comments {
		if c.ListingID == listingID {
			u := m.d.users[c.UserID]
			out = append(out, model.CommentEntry{Comment: c, Author: model.UserSummary{ID: u.ID, Name: u.PublicName()}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Tx

func (m *memStore) LockListing(ctx context.Context, id uint64) (model.Listing, error) {
	return m.ListingByID(ctx, id)
}

func (m *memStore) SetListingState(_ context.Context, id uint64, status model.Status, partnerID *uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.d.listings[id]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	l.PartnerID = nil
	if partnerID != nil {
		l.PartnerID = uint64Ptr(*partnerID)
	}
	l.UpdatedAt = m.tick()
	m.d.listings[id] = l
	return nil
}

func (m *memStore) InsertListing(_ context.Context, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	l.CreatedAt = m.tick()
	l.UpdatedAt = l.CreatedAt
	m.d.listings[l.ID] = *l
	return nil
}

func (m *memStore) UpdateListingDetails(_ context.Context, l model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.d.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name, cur.Price, cur.CategoryID = l.Name, l.Price, l.CategoryID
	cur.Size, cur.Condition, cur.Description = l.Size, l.Condition, l.Description
	cur.UpdatedAt = m.tick()
	m.d.listings[l.ID] = cur
	return nil
}

func (m *memStore) InsertImage(_ context.Context, img *model.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertImage != nil {
		return m.failInsertImage
	}
	img.ID = m.id()
	m.d.images[img.ID] = *img
	return nil
}

func (m *memStore) SetMainImage(_ context.Context, listingID, imageID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.d.listings[listingID]
	l.MainImageID = uint64Ptr(imageID)
	m.d.listings[listingID] = l
	return nil
}

func (m *memStore) DeleteListing(_ context.Context, id uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.d.listings[id]; !ok {
		return nil, ErrNotFound
	}
	var refs []string
	for k, img := range m.d.images {
		if img.ListingID == id {
			refs = append(refs, img.Ref)
			delete(m.d.images, k)
		}
	}
	for k := range m.d.favorites {
		if k.listing == id {
			delete(m.d.favorites, k)
		}
	}
	for k, c := range m.d.comments {
		if c.ListingID == id {
			delete(m.d.comments, k)
		}
	}
	for k, in := range m.d.intents {
		if in.ListingID == id {
			delete(m.d.intents, k)
		}
	}
	delete(m.d.listings, id)
	sort.Strings(refs)
	return refs, nil
}

// findIntent must be called with mu held.
func (m *memStore) findIntent(userID, listingID uint64) (model.PurchaseIntent, error) {
	for _, in := range m.d.intents {
		if in.UserID == userID && in.ListingID == listingID {
			return in, nil
		}
	}
	return model.PurchaseIntent{}, ErrNotFound
}

func (m *memStore) FindIntent(_ context.Context, userID, listingID uint64) (model.PurchaseIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findIntent(userID, listingID)
}

func (m *memStore) InsertIntent(_ context.Context, in *model.PurchaseIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.findIntent(in.UserID, in.ListingID); err == nil {
		return ErrDuplicate
	}
	in.ID = m.id()
	in.CreatedAt = m.tick()
	in.UpdatedAt = in.CreatedAt
	m.d.intents[in.ID] = *in
	return nil
}

func (m *memStore) DeleteIntent(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.d.intents, id)
	return nil
}

func (m *memStore) FavoriteExists(_ context.Context, userID, listingID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.d.favorites[favKey{userID, listingID}]
	return ok, nil
}

func (m *memStore) InsertFavorite(_ context.Context, userID, listingID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := favKey{userID, listingID}
	if _, ok := m.d.favorites[k]; ok {
		return ErrDuplicate
	}
	m.d.favorites[k] = m.tick()
	return nil
}

func (m *memStore) DeleteFavorite(_ context.Context, userID, listingID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.d.favorites, favKey{userID, listingID})
	return nil
}

func (m *memStore) InsertComment(_ context.Context, c *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.d.comments[c.ID] = *c
	return nil
}

func (m *memStore) ListingIDsByOwner(_ context.Context, ownerID uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	for id, l := range m.d.listings {
		if l.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memStore) ReleasePartner(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.d.listings {
		if !l.IsPartner(userID) {
			continue
		}
		if l.Status == model.StatusInTransaction {
			l.Status = model.StatusForSale
		}
		l.PartnerID = nil
		m.d.listings[id] = l
	}
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.d.users[id]; !ok {
		return ErrNotFound
	}
	for k := range m.d.favorites {
		if k.user == id {
			delete(m.d.favorites, k)
		}
	}
	for k, c := range m.d.comments {
		if c.UserID == id {
			delete(m.d.comments, k)
		}
	}
	for k, in := range m.d.intents {
		if in.UserID == id {
			delete(m.d.intents, k)
		}
	}
	delete(m.d.users, id)
	return nil
}

// recordingNotifier captures notifications; fail makes every delivery
// return an error.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Template
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingEvents) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// memImages keeps uploaded binaries in a map.
type memImages struct {
	mu      sync.Mutex
	n       int
	blobs   map[string][]byte
	failAt  int
	deleted []string
}

func newMemImages() *memImages { return &memImages{blobs: map[string][]byte{}, failAt: -1} }

func (im *memImages) Save(_ context.Context, img ImageUpload, _ ImageDescriptor) (string, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.failAt == im.n {
		return "", errors.New("disk full")
	}
	b, err := io.ReadAll(img.Content)
	if err != nil {
		return "", err
	}
	im.n++
	ref := "img-" + string(rune('a'+im.n-1)) + "-" + img.Filename
	im.blobs[ref] = b
	return ref, nil
}

func (im *memImages) Delete(_ context.Context, ref string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	delete(im.blobs, ref)
	im.deleted = append(im.deleted, ref)
	return nil
}

func (im *memImages) stored() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return len(im.blobs)
}
