package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/chat"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/anonto42/dongne-market/backend/internal/validators"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAPI(register func(g *echo.Group)) *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(testSecret))
	register(api)
	return e
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token, err := GenerateToken(testSecret, &models.User{ID: userID, Email: fmt.Sprintf("user%d@example.com", userID)}, time.Now())
	require.NoError(t, err)
	return token
}

func do(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type stubLikes struct {
	viewers []uint
}

func (s *stubLikes) Status(_ context.Context, itemID string, viewerID uint) (*models.LikeStatus, error) {
	s.viewers = append(s.viewers, viewerID)
	return &models.LikeStatus{ItemID: itemID, Likes: 4}, nil
}

func (s *stubLikes) Toggle(_ context.Context, itemID string, viewerID uint) (*models.LikeStatus, error) {
	s.viewers = append(s.viewers, viewerID)
	if viewerID == 0 {
		return nil, services.ErrAuthRequired
	}
	return &models.LikeStatus{ItemID: itemID, Liked: true, Likes: 5}, nil
}

func TestOptionalAuth(t *testing.T) {
	likes := &stubLikes{}
	e := newTestAPI(NewLikeHandler(likes).RegisterLikeRoutes)

	rec := do(e, http.MethodGet, "/api/v1/items/abc/like", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/items/abc/like", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/items/abc/like", "", tokenFor(t, 7))
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.LikeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Liked)
	assert.Equal(t, 5, status.Likes)

	rec = do(e, http.MethodGet, "/api/v1/items/abc/like?access_token="+tokenFor(t, 9), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []uint{0, 0, 7, 9}, likes.viewers)
}

func TestInvalidTokenIsRejectedBeforeHandler(t *testing.T) {
	likes := &stubLikes{}
	e := newTestAPI(NewLikeHandler(likes).RegisterLikeRoutes)

	forged, err := GenerateToken("another-secret", &models.User{ID: 7}, time.Now())
	require.NoError(t, err)
	expired, err := GenerateToken(testSecret, &models.User{ID: 7}, time.Now().Add(-100*time.Hour))
	require.NoError(t, err)

	for _, token := range []string{forged, expired, "not-a-jwt"} {
		rec := do(e, http.MethodGet, "/api/v1/items/abc/like", "", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/abc/like", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, likes.viewers)
}

type stubChat struct {
	roomErr error
	sent    []string
}

func (s *stubChat) StartChat(_ context.Context, itemID string, viewerID uint) (*models.ChatRoom, error) {
	return &models.ChatRoom{ID: 1, ItemID: itemID, BuyerID: viewerID, SellerID: 1}, nil
}

func (s *stubChat) GetRoom(_ context.Context, roomID, viewerID uint) (*models.ChatRoomDetail, error) {
	if s.roomErr != nil {
		return nil, s.roomErr
	}
	return &models.ChatRoomDetail{ChatRoom: models.ChatRoom{ID: roomID, SellerID: 1, BuyerID: viewerID}}, nil
}

func (s *stubChat) ListRooms(context.Context, uint) ([]models.ChatRoomListEntry, error) {
	return []models.ChatRoomListEntry{}, nil
}

func (s *stubChat) LoadMessages(context.Context, uint, uint) ([]models.ChatMessage, error) {
	return []models.ChatMessage{}, nil
}

func (s *stubChat) SendMessage(_ context.Context, roomID, viewerID uint, content string) (*models.ChatMessage, error) {
	s.sent = append(s.sent, content)
	return &models.ChatMessage{ID: 10, RoomID: roomID, SenderID: viewerID, Content: content}, nil
}

func (s *stubChat) MarkRead(context.Context, uint, uint, uint) error { return nil }

func (s *stubChat) UnreadCount(context.Context, uint) (int64, error) { return 3, nil }

type stubRooms struct {
	updates []chat.RoomUpdate
}

func (s *stubRooms) Run(ctx context.Context, roomID, viewerID uint, render func(chat.RoomUpdate) error) error {
	for _, u := range s.updates {
		u.RoomID = roomID
		if err := render(u); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type stubBadge struct{}

func (stubBadge) Run(ctx context.Context, _ uint, render func(chat.BadgeUpdate) error) error {
	if err := render(chat.BadgeUpdate{Type: "unread", Unread: 2}); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSendMessageValidation(t *testing.T) {
	svc := &stubChat{}
	e := newTestAPI(NewChatHandler(svc, &stubRooms{}, stubBadge{}).RegisterChatRoutes)
	token := tokenFor(t, 2)

	rec := do(e, http.MethodPost, "/api/v1/chat/rooms/1/messages", `{"content":""}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, http.MethodPost, "/api/v1/chat/rooms/zero/messages", `{"content":"hi"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.sent)

	rec = do(e, http.MethodPost, "/api/v1/chat/rooms/1/messages", `{"content":"안녕하세요"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, uint(2), msg.SenderID)
	assert.Equal(t, []string{"안녕하세요"}, svc.sent)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrAuthRequired, http.StatusUnauthorized},
		{fmt.Errorf("room 4: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("room 4: %w", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("bad: %w", services.ErrValidation), http.StatusBadRequest},
		{services.ErrConflict, http.StatusConflict},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &stubChat{roomErr: tc.err}
		e := newTestAPI(NewChatHandler(svc, &stubRooms{}, stubBadge{}).RegisterChatRoutes)
		rec := do(e, http.MethodGet, "/api/v1/chat/rooms/4", "", tokenFor(t, 2))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestUnreadCount(t *testing.T) {
	e := newTestAPI(NewChatHandler(&stubChat{}, &stubRooms{}, stubBadge{}).RegisterChatRoutes)

	rec := do(e, http.MethodGet, "/api/v1/chat/unread", "", tokenFor(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
}

func dialStream(t *testing.T, srv *httptest.Server, path, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	if token != "" {
		url += "?" + middleware.TokenQueryParam + "=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func TestStreamRoomPushesSnapshots(t *testing.T) {
	rooms := &stubRooms{updates: []chat.RoomUpdate{
		{Type: "messages", Messages: []models.ChatMessage{{ID: 1, Content: "a"}}},
		{Type: "messages", Messages: []models.ChatMessage{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}}, ScrollToEnd: true},
	}}
	srv := httptest.NewServer(newTestAPI(NewChatHandler(&stubChat{}, rooms, stubBadge{}).RegisterChatRoutes))
	defer srv.Close()

	conn, _, err := dialStream(t, srv, "/api/v1/chat/rooms/5/ws", tokenFor(t, 2))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second chat.RoomUpdate
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, uint(5), first.RoomID)
	assert.Len(t, first.Messages, 1)
	assert.False(t, first.ScrollToEnd)
	assert.Len(t, second.Messages, 2)
	assert.True(t, second.ScrollToEnd)
}

func TestStreamRoomChecksAccessBeforeUpgrade(t *testing.T) {
	svc := &stubChat{roomErr: fmt.Errorf("room 5: %w", services.ErrForbidden)}
	srv := httptest.NewServer(newTestAPI(NewChatHandler(svc, &stubRooms{}, stubBadge{}).RegisterChatRoutes))
	defer srv.Close()

	_, resp, err := dialStream(t, srv, "/api/v1/chat/rooms/5/ws", tokenFor(t, 3))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamUnreadRequiresViewer(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(NewChatHandler(&stubChat{}, &stubRooms{}, stubBadge{}).RegisterChatRoutes))
	defer srv.Close()

	_, resp, err := dialStream(t, srv, "/api/v1/chat/unread/ws", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := dialStream(t, srv, "/api/v1/chat/unread/ws", tokenFor(t, 2))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var badge chat.BadgeUpdate
	require.NoError(t, conn.ReadJSON(&badge))
	assert.Equal(t, chat.BadgeUpdate{Type: "unread", Unread: 2}, badge)
}

type stubItems struct {
	ItemService
	locations []string
}

func (s *stubItems) List(_ context.Context, location string) ([]models.Item, error) {
	s.locations = append(s.locations, location)
	return []models.Item{}, nil
}

type stubLocationState struct {
	selected map[uint]string
}

func (s *stubLocationState) Selected(_ context.Context, viewerID uint) (string, error) {
	return s.selected[viewerID], nil
}

func (s *stubLocationState) Select(_ context.Context, viewerID uint, location string) error {
	s.selected[viewerID] = location
	return nil
}

func TestListItemsFallsBackToSelectedLocation(t *testing.T) {
	items := &stubItems{}
	state := &stubLocationState{selected: map[uint]string{2: "망원동"}}
	e := newTestAPI(NewItemHandler(items, state).RegisterItemRoutes)
	token := tokenFor(t, 2)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/items", "", token).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/items?location=", "", token).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/items", "", "").Code)

	assert.Equal(t, []string{"망원동", "", ""}, items.locations)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyCheck(t *testing.T) {
	var down error
	health := NewHealthHandler(pingFunc(func(context.Context) error { return down }))
	e := echo.New()
	e.GET("/ready", health.ReadyCheck)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ready", "", "").Code)

	down = fmt.Errorf("redis: connection refused")
	rec := do(e, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}
