package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeItems struct {
	mu        sync.Mutex
	items     map[string]*models.Item
	calls     int
	adjustErr error
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: map[string]*models.Item{}}
}

func (f *fakeItems) add(owner uint, title string, likes int) *models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := &models.Item{
		ID:        primitive.NewObjectID(),
		Title:     title,
		UserID:    owner,
		Likes:     likes,
		Location:  "망원동",
		CreatedAt: epoch.Add(time.Duration(len(f.items)) * time.Minute),
	}
	f.items[it.ID.Hex()] = it
	return it
}

func (f *fakeItems) get(id string) models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeItems) CreateItem(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	item.ID = primitive.NewObjectID()
	item.CreatedAt = epoch.Add(time.Duration(len(f.items)) * time.Minute)
	cp := *item
	f.items[item.ID.Hex()] = &cp
	return nil
}

func (f *fakeItems) GetItemByID(_ context.Context, id string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	it, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItems) GetItemsByIDs(_ context.Context, ids []string) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := []models.Item{}
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeItems) sorted(keep func(*models.Item) bool) []models.Item {
	out := []models.Item{}
	for _, it := range f.items {
		if keep(it) {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeItems) ListItems(_ context.Context, location string) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sorted(func(it *models.Item) bool { return location == "" || it.Location == location }), nil
}

func (f *fakeItems) ListItemsByUser(_ context.Context, userID uint) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sorted(func(it *models.Item) bool { return it.UserID == userID }), nil
}

func (f *fakeItems) SearchItems(_ context.Context, query string, limit int64) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := f.sorted(func(it *models.Item) bool {
		return strings.Contains(strings.ToLower(it.Title), strings.ToLower(query))
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeItems) ListLocations(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	seen := map[string]bool{}
	out := []string{}
	for _, it := range f.items {
		if it.Location != "" && !seen[it.Location] {
			seen[it.Location] = true
			out = append(out, it.Location)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeItems) UpdateItem(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.items[item.ID.Hex()]; !ok {
		return repositories.ErrNotFound
	}
	cp := *item
	f.items[item.ID.Hex()] = &cp
	return nil
}

func (f *fakeItems) inc(id string, apply func(*models.Item)) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	it, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	apply(it)
	cp := *it
	return &cp, nil
}

func (f *fakeItems) IncrementViews(_ context.Context, id string) (*models.Item, error) {
	return f.inc(id, func(it *models.Item) { it.Views++ })
}

func (f *fakeItems) AdjustLikes(_ context.Context, id string, delta int) (*models.Item, error) {
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return f.inc(id, func(it *models.Item) { it.Likes += delta })
}

func (f *fakeItems) AdjustComments(_ context.Context, id string, delta int) (*models.Item, error) {
	return f.inc(id, func(it *models.Item) { it.Comments += delta })
}

type likeKey struct {
	user uint
	item string
}

type fakeLikes struct {
	mu    sync.Mutex
	rows  map[likeKey]models.Like
	seq   uint
	calls int
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{rows: map[likeKey]models.Like{}}
}

func (f *fakeLikes) has(user uint, item string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[likeKey{user, item}]
	return ok
}

func (f *fakeLikes) CreateLike(_ context.Context, like *models.Like) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	k := likeKey{like.UserID, like.ItemID}
	if _, ok := f.rows[k]; ok {
		return repositories.ErrDuplicate
	}
	f.seq++
	like.ID = f.seq
	like.CreatedAt = epoch.Add(time.Duration(f.seq) * time.Second)
	f.rows[k] = *like
	return nil
}

func (f *fakeLikes) DeleteLike(_ context.Context, userID uint, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	k := likeKey{userID, itemID}
	_, ok := f.rows[k]
	delete(f.rows, k)
	return ok, nil
}

func (f *fakeLikes) HasUserLikedItem(_ context.Context, userID uint, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, ok := f.rows[likeKey{userID, itemID}]
	return ok, nil
}

func (f *fakeLikes) GetLikedItemIDs(_ context.Context, userID uint) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var rows []models.Like
	for k, l := range f.rows {
		if k.user == userID {
			rows = append(rows, l)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	ids := []string{}
	for _, l := range rows {
		ids = append(ids, l.ItemID)
	}
	return ids, nil
}

type fakeChats struct {
	mu           sync.Mutex
	rooms        map[uint]*models.ChatRoom
	msgs         []*models.ChatMessage
	seq          uint
	calls        int
	beforeCreate func()
}

func newFakeChats() *fakeChats {
	return &fakeChats{rooms: map[uint]*models.ChatRoom{}}
}

func (f *fakeChats) roomCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

func (f *fakeChats) seedRoom(itemID string, seller, buyer uint) *models.ChatRoom {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := &models.ChatRoom{ItemID: itemID, SellerID: seller, BuyerID: buyer}
	if err := f.insertRoom(room); err != nil {
		panic(err)
	}
	return room
}

func (f *fakeChats) insertRoom(room *models.ChatRoom) error {
	for _, r := range f.rooms {
		if r.ItemID == room.ItemID && r.BuyerID == room.BuyerID {
			return repositories.ErrDuplicate
		}
	}
	f.seq++
	room.ID = f.seq
	room.CreatedAt = epoch
	room.UpdatedAt = epoch
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

// seedMessage appends a message directly, bypassing call counting
func (f *fakeChats) seedMessage(roomID, sender uint, content string) *models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendMessage(&models.ChatMessage{RoomID: roomID, SenderID: sender, Content: content})
}

func (f *fakeChats) appendMessage(msg *models.ChatMessage) *models.ChatMessage {
	f.seq++
	msg.ID = f.seq
	msg.IsRead = false
	msg.CreatedAt = epoch.Add(time.Duration(len(f.msgs)) * time.Second)
	cp := *msg
	f.msgs = append(f.msgs, &cp)
	return &cp
}

func (f *fakeChats) message(id uint) models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return *m
		}
	}
	return models.ChatMessage{}
}

func (f *fakeChats) CreateRoom(_ context.Context, room *models.ChatRoom) error {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.insertRoom(room)
}

func (f *fakeChats) GetRoomByID(_ context.Context, id uint) (*models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.rooms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeChats) FindRoom(_ context.Context, itemID string, buyerID uint) (*models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, r := range f.rooms {
		if r.ItemID == itemID && r.BuyerID == buyerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeChats) GetRoomsForUser(_ context.Context, userID uint) ([]models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := []models.ChatRoom{}
	for _, r := range f.rooms {
		if r.HasParticipant(userID) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (f *fakeChats) TouchRoom(_ context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if r, ok := f.rooms[id]; ok {
		r.UpdatedAt = at
	}
	return nil
}

func (f *fakeChats) CreateMessage(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	*msg = *f.appendMessage(msg)
	return nil
}

func (f *fakeChats) GetMessagesByRoom(_ context.Context, roomID uint) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := []models.ChatMessage{}
	for _, m := range f.msgs {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeChats) MarkRoomRead(_ context.Context, roomID, viewerID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var n int64
	for _, m := range f.msgs {
		if m.RoomID == roomID && m.SenderID != viewerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeChats) MarkMessageRead(_ context.Context, messageID, viewerID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, m := range f.msgs {
		if m.ID == messageID && m.SenderID != viewerID && !m.IsRead {
			m.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChats) unreadFor(viewerID uint, keep func(*models.ChatMessage) bool) int64 {
	var n int64
	for _, m := range f.msgs {
		r := f.rooms[m.RoomID]
		if r != nil && r.HasParticipant(viewerID) && m.SenderID != viewerID && !m.IsRead && keep(m) {
			n++
		}
	}
	return n
}

func (f *fakeChats) CountUnread(_ context.Context, viewerID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.unreadFor(viewerID, func(*models.ChatMessage) bool { return true }), nil
}

func (f *fakeChats) CountUnreadByRoom(_ context.Context, viewerID uint, roomIDs []uint) (map[uint]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := map[uint]int64{}
	for _, id := range roomIDs {
		if n := f.unreadFor(viewerID, func(m *models.ChatMessage) bool { return m.RoomID == id }); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeChats) GetLastMessages(_ context.Context, roomIDs []uint) (map[uint]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := map[uint]models.ChatMessage{}
	for _, m := range f.msgs {
		for _, id := range roomIDs {
			if m.RoomID == id {
				out[id] = *m
			}
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[uint]*models.User
}

func newFakeUsers(ids ...uint) *fakeUsers {
	f := &fakeUsers{users: map[uint]*models.User{}}
	for _, id := range ids {
		f.users[id] = &models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}
	}
	return f
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = uint(len(f.users) + 1)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	for _, u := range f.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	out := []models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

type fakeComments struct {
	rows []models.Comment
}

func (f *fakeComments) CreateComment(_ context.Context, c *models.Comment) error {
	c.ID = uint(len(f.rows) + 1)
	c.CreatedAt = epoch.Add(time.Duration(c.ID) * time.Second)
	f.rows = append(f.rows, *c)
	return nil
}

func (f *fakeComments) GetCommentsByItemID(_ context.Context, itemID string, offset, limit int) ([]models.Comment, int64, error) {
	var matching []models.Comment
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].ItemID == itemID {
			matching = append(matching, f.rows[i])
		}
	}
	total := int64(len(matching))
	if offset >= len(matching) {
		return []models.Comment{}, total, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], total, nil
}

type fakeNotifications struct {
	rows []*models.Notification
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = uint(len(f.rows) + 1)
	n.CreatedAt = epoch.Add(time.Duration(n.ID) * time.Second)
	cp := *n
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeNotifications) GetNotificationByID(_ context.Context, id uint) (*models.Notification, error) {
	for _, n := range f.rows {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeNotifications) GetUnreadByRecipient(_ context.Context, recipientID uint) ([]models.Notification, error) {
	out := []models.Notification{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if n := f.rows[i]; n.UserID == recipientID && !n.IsRead {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkAsRead(_ context.Context, id uint) error {
	for _, n := range f.rows {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

type fakeProfiles struct {
	rows map[uint]models.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[uint]models.Profile{}}
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID uint) (*models.Profile, error) {
	p, ok := f.rows[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) GetProfilesByIDs(_ context.Context, ids []uint) ([]models.Profile, error) {
	out := []models.Profile{}
	for _, id := range ids {
		if p, ok := f.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, p *models.Profile) error {
	f.rows[p.ID] = *p
	return nil
}

type fakeFeed struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *fakeFeed) Publish(_ context.Context, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeFeed) Subscribe(context.Context, realtime.Filter, realtime.Handler) (realtime.Subscription, error) {
	return nopSubscription{}, nil
}

func (f *fakeFeed) published(table string, typ realtime.EventType) []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []realtime.Event
	for _, ev := range f.events {
		if ev.Table == table && ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() error { return nil }

type upload struct {
	bucket, key string
	upsert      bool
	body        string
}

type fakeObjects struct {
	uploads []upload
}

func (f *fakeObjects) Upload(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string, upsert bool) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploads = append(f.uploads, upload{bucket: bucket, key: key, upsert: upsert, body: string(b)})
	return nil
}

func (f *fakeObjects) PublicURL(bucket, key string) string {
	return "http://cdn.test/" + bucket + "/" + key
}
