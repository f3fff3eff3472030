package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orgchat/internal/config"
	"orgchat/internal/middleware"
	"orgchat/internal/models"
	"orgchat/internal/repositories/repotest"
	"orgchat/internal/services"
)

const testOrg = "org-1"

type gatewayEnv struct {
	store    *repotest.Store
	chats    *services.ChatService
	gw       *Gateway
	registry *Registry
	verifier *middleware.TokenVerifier
	srv      *httptest.Server
}

func newGatewayEnv(t *testing.T, tune ...func(*config.RealtimeConfig)) *gatewayEnv {
	t.Helper()
	store := repotest.NewStore()
	store.SetPackage(testOrg, "diamond")
	for _, u := range []*models.User{
		{ID: "ann", Email: "ann@acme.io", FirstName: "Ann", LastName: "Lee", EmailVerified: true},
		{ID: "bob", Email: "bob@acme.io", FirstName: "Bob", LastName: "Stone", EmailVerified: true},
		{ID: "cara", Email: "cara@acme.io", FirstName: "Cara", LastName: "Diaz", EmailVerified: true},
		{ID: "newbie", Email: "new@acme.io", FirstName: "New"},
	} {
		store.AddUser(testOrg, u)
	}

	log := zap.NewNop()
	registry := NewRegistry()
	hub := NewHub()
	membership := services.NewMembershipService(store.OrgMembers(), store.Chats())
	entitlement := services.NewEntitlementService(store.Entitlements(), []string{"platinum", "diamond"}, "chat-system", log)
	chats := services.NewChatService(services.ChatServiceDeps{
		Chats:       store.Chats(),
		Messages:    store.Messages(),
		Users:       store.Users(),
		OrgMembers:  store.OrgMembers(),
		Membership:  membership,
		Entitlement: entitlement,
		Notifier:    services.NewNotificationService(store.NotificationRepo(), registry, nil, log),
		Audit:       services.NewAuditService(store.Audit(), log),
		Config:      config.ChatConfig{DefaultChatPageSize: 20, DefaultMsgPageSize: 50, MaxPageSize: 100},
		Logger:      log,
	})

	cfg := config.RealtimeConfig{
		SendBuffer:      64,
		WriteWait:       time.Second,
		PongWait:        10 * time.Second,
		MaxMessageSize:  64 * 1024,
		EventsPerSecond: 1000,
		EventBurst:      1000,
	}
	for _, f := range tune {
		f(&cfg)
	}
	verifier := middleware.NewTokenVerifier("test-secret", time.Minute)
	gw := NewGateway(GatewayDeps{
		Verifier:    verifier,
		Users:       store.Users(),
		Membership:  membership,
		Entitlement: entitlement,
		Chats:       chats,
		Registry:    registry,
		Hub:         hub,
		Config:      cfg,
		Logger:      log,
	})
	srv := httptest.NewServer(http.HandlerFunc(gw.ServeWS))
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})
	return &gatewayEnv{store: store, chats: chats, gw: gw, registry: registry, verifier: verifier, srv: srv}
}

func (e *gatewayEnv) url(orgID string) string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?organizationId=" + orgID
}

func (e *gatewayEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.verifier.Issue(middleware.Claims{UserID: userID}, time.Hour)
	require.NoError(t, err)
	return tok
}

// connect dials as userID and waits until the gateway registered the connection.
func (e *gatewayEnv) connect(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	return e.connectTo(t, userID, testOrg)
}

func (e *gatewayEnv) connectTo(t *testing.T, userID, orgID string) *websocket.Conn {
	t.Helper()
	before := e.registry.ConnectionCount(userID)
	conn, _, err := websocket.DefaultDialer.Dial(e.url(orgID), http.Header{
		"Authorization": {"Bearer " + e.token(t, userID)},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	e.waitConnections(t, userID, before+1)
	return conn
}

func (e *gatewayEnv) waitConnections(t *testing.T, userID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return e.registry.ConnectionCount(userID) == n },
		2*time.Second, 5*time.Millisecond)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func emit(t *testing.T, conn *websocket.Conn, event, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, ID: id, Data: raw}))
}

// readUntil returns every frame up to and including the first one named event.
func readUntil(t *testing.T, conn *websocket.Conn, event string) []frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var got []frame
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s, got %v", event, got)
		got = append(got, f)
		if f.Event == event {
			return got
		}
	}
}

func last(frames []frame) frame { return frames[len(frames)-1] }

func eventNames(frames []frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

// flush round-trips an unknown event; everything the server queued before it
// is returned.
func flush(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	emit(t, conn, "sync", "sync", map[string]string{})
	frames := readUntil(t, conn, EventError)
	return frames[:len(frames)-1]
}

func decodeData(t *testing.T, f frame, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Data, v))
}

func (e *gatewayEnv) directChat(t *testing.T, a, b string) *models.Chat {
	t.Helper()
	chat, err := e.chats.CreateChat(context.Background(), a, testOrg, services.CreateChatInput{
		Type: models.ChatTypeDirect, MemberIDs: []string{b},
	})
	require.NoError(t, err)
	return chat
}

func (e *gatewayEnv) groupChat(t *testing.T, owner string, members ...string) *models.Chat {
	t.Helper()
	name := "Ops"
	chat, err := e.chats.CreateChat(context.Background(), owner, testOrg, services.CreateChatInput{
		Type: models.ChatTypeGroup, Name: &name, MemberIDs: members,
	})
	require.NoError(t, err)
	return chat
}

func TestGateway_HandshakeRejections(t *testing.T) {
	e := newGatewayEnv(t)
	e.store.AddUser("org-2", &models.User{ID: "outsider", Email: "o@x.io", EmailVerified: true})

	tests := []struct {
		name   string
		header http.Header
		url    string
		status int
	}{
		{"missing token", nil, e.url(testOrg), http.StatusUnauthorized},
		{"bad token", http.Header{"Authorization": {"Bearer junk"}}, e.url(testOrg), http.StatusUnauthorized},
		{"unverified email", http.Header{"Authorization": {"Bearer " + e.token(t, "newbie")}}, e.url(testOrg), http.StatusUnauthorized},
		{"unknown user", http.Header{"Authorization": {"Bearer " + e.token(t, "ghost")}}, e.url(testOrg), http.StatusUnauthorized},
		{"not a member", http.Header{"Authorization": {"Bearer " + e.token(t, "outsider")}}, e.url(testOrg), http.StatusForbidden},
		{"missing organization", http.Header{"Authorization": {"Bearer " + e.token(t, "ann")}}, e.url(""), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, tt.header)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.False(t, e.registry.IsOnline("outsider"))
}

func TestGateway_TokenFallbacks(t *testing.T) {
	e := newGatewayEnv(t)

	dialer := websocket.Dialer{Subprotocols: []string{"access_token", e.token(t, "ann")}}
	conn, resp, err := dialer.Dial(e.url(testOrg), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "access_token", resp.Header.Get("Sec-WebSocket-Protocol"))

	conn2, _, err := websocket.DefaultDialer.Dial(e.url(testOrg)+"&token="+e.token(t, "bob"), nil)
	require.NoError(t, err)
	defer conn2.Close()

	e.waitConnections(t, "ann", 1)
	e.waitConnections(t, "bob", 1)
	assert.Equal(t, []string{"ann", "bob"}, e.gw.OnlineUsers(testOrg))
}

func TestGateway_PresenceDeduplication(t *testing.T) {
	e := newGatewayEnv(t)
	observer := e.connect(t, "cara")

	c1 := e.connect(t, "bob")
	online := last(readUntil(t, observer, EventUserOnline))
	var ev UserOnlineEvent
	decodeData(t, online, &ev)
	assert.Equal(t, UserOnlineEvent{UserID: "bob", FirstName: "Bob", LastName: "Stone"}, ev)

	c2 := e.connect(t, "bob")
	assert.Empty(t, flush(t, observer), "second connection must not announce presence again")

	require.NoError(t, c1.Close())
	e.waitConnections(t, "bob", 1)
	assert.Empty(t, flush(t, observer), "closing one of two connections keeps the user online")
	assert.True(t, e.registry.IsOnline("bob"))

	require.NoError(t, c2.Close())
	offline := readUntil(t, observer, EventUserOffline)
	assert.Equal(t, []string{EventUserOffline}, eventNames(offline))
	var off UserOfflineEvent
	decodeData(t, last(offline), &off)
	assert.Equal(t, "bob", off.UserID)
	assert.False(t, e.registry.IsOnline("bob"))
}

// addSecondOrg makes bob a member of org-2 as well and adds dora there.
func (e *gatewayEnv) addSecondOrg() {
	e.store.SetPackage("org-2", "diamond")
	e.store.AddUser("org-2", &models.User{ID: "bob", Email: "bob@acme.io", FirstName: "Bob", LastName: "Stone", EmailVerified: true})
	e.store.AddUser("org-2", &models.User{ID: "dora", Email: "dora@beta.io", FirstName: "Dora", EmailVerified: true})
}

func TestGateway_PresenceIsPerOrganization(t *testing.T) {
	e := newGatewayEnv(t)
	e.addSecondOrg()
	ann := e.connectTo(t, "ann", testOrg)
	dora := e.connectTo(t, "dora", "org-2")

	bobOrg2 := e.connectTo(t, "bob", "org-2")
	assert.Equal(t, []string{EventUserOnline}, eventNames(readUntil(t, dora, EventUserOnline)))
	assert.Empty(t, flush(t, ann), "org-1 hears nothing about an org-2 connection")

	bobOrg1 := e.connectTo(t, "bob", testOrg)
	var ev UserOnlineEvent
	decodeData(t, last(readUntil(t, ann, EventUserOnline)), &ev)
	assert.Equal(t, "bob", ev.UserID, "first org-1 connection announces bob in org-1")
	assert.Empty(t, flush(t, dora))
	assert.Equal(t, []string{"ann", "bob"}, e.gw.OnlineUsers(testOrg))

	require.NoError(t, bobOrg1.Close())
	e.waitConnections(t, "bob", 1)
	assert.Equal(t, []string{EventUserOffline}, eventNames(readUntil(t, ann, EventUserOffline)))
	assert.Empty(t, flush(t, dora), "bob is still online in org-2")
	assert.Equal(t, []string{"ann"}, e.gw.OnlineUsers(testOrg))
	assert.Equal(t, []string{"bob", "dora"}, e.gw.OnlineUsers("org-2"))

	require.NoError(t, bobOrg2.Close())
	assert.Equal(t, []string{EventUserOffline}, eventNames(readUntil(t, dora, EventUserOffline)))
	assert.Empty(t, flush(t, ann))
}

func TestGateway_ChatRoomsStayInsideTheOrganization(t *testing.T) {
	e := newGatewayEnv(t)
	e.addSecondOrg()
	ann := e.connectTo(t, "ann", testOrg)
	bobOrg2 := e.connectTo(t, "bob", "org-2")
	bobOrg1 := e.connectTo(t, "bob", testOrg)
	readUntil(t, ann, EventUserOnline)

	ctx := context.Background()
	chat := e.groupChat(t, "ann", "bob")
	e.gw.ChatCreated(ctx, chat)
	_, err := e.gw.SendMessage(ctx, "ann", testOrg, chat.ID, services.SendMessageInput{Content: strPtr("org-1 only")})
	require.NoError(t, err)

	readUntil(t, bobOrg1, EventMessageNew)
	assert.Empty(t, flush(t, bobOrg2), "a socket opened for org-2 must not join org-1 chat rooms")

	// signaling targets the callee's sockets in the caller's organization
	emit(t, ann, EventCallOffer, "o1", map[string]any{
		"chatId": chat.ID, "otherUserId": "bob", "callType": "audio", "offer": map[string]string{"sdp": "v=0"},
	})
	readUntil(t, bobOrg1, EventCallIncoming)
	assert.Empty(t, flush(t, bobOrg2))
}

// A page reload closes the old socket while the new one connects. Whatever
// the interleaving, observers must not end up seeing the user offline.
func TestGateway_ReloadNeverEndsOffline(t *testing.T) {
	e := newGatewayEnv(t)
	observer := e.connect(t, "cara")
	old := e.connect(t, "bob")
	readUntil(t, observer, EventUserOnline)
	header := http.Header{"Authorization": {"Bearer " + e.token(t, "bob")}}

	for i := 0; i < 20; i++ {
		var (
			wg      sync.WaitGroup
			fresh   *websocket.Conn
			dialErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = old.Close()
		}()
		go func() {
			defer wg.Done()
			fresh, _, dialErr = websocket.DefaultDialer.Dial(e.url(testOrg), header)
		}()
		wg.Wait()
		require.NoError(t, dialErr)
		conn := fresh
		t.Cleanup(func() { conn.Close() })

		// an answer on the new socket means it is registered; one connection
		// left then means the old one is gone too
		flush(t, fresh)
		e.waitConnections(t, "bob", 1)

		var presence []string
		for _, f := range flush(t, observer) {
			if f.Event == EventUserOnline || f.Event == EventUserOffline {
				presence = append(presence, f.Event)
			}
		}
		if len(presence) > 0 {
			assert.Equal(t, EventUserOnline, presence[len(presence)-1], "iteration %d: %v", i, presence)
		}
		old = fresh
	}
	assert.True(t, e.registry.IsOnline("bob"))
}

func TestGateway_MessageSendBroadcastsToRoom(t *testing.T) {
	e := newGatewayEnv(t)
	chat := e.directChat(t, "ann", "bob")

	ann := e.connect(t, "ann")
	bob := e.connect(t, "bob")
	readUntil(t, ann, EventUserOnline)

	emit(t, ann, EventMessageSend, "m1", map[string]any{
		"chat_id": chat.ID,
		"message": map[string]any{"content": "hello"},
	})

	got := last(readUntil(t, bob, EventMessageNew))
	var ev MessageNewEvent
	decodeData(t, got, &ev)
	assert.Equal(t, chat.ID, ev.ChatID)
	require.NotNil(t, ev.Message.Content)
	assert.Equal(t, "hello", *ev.Message.Content)
	assert.Equal(t, "ann", ev.Message.SenderID)
	require.NotNil(t, ev.Message.Sender)
	assert.Equal(t, "Ann", ev.Message.Sender.FirstName)

	// the sender sees its own message, then the ack
	assert.Equal(t, []string{EventMessageNew, EventAck}, eventNames(readUntil(t, ann, EventAck)))
	assert.Equal(t, 1, e.store.Member(chat.ID, "bob").UnreadCount)
	assert.Equal(t, 0, e.store.Member(chat.ID, "ann").UnreadCount)
}

func TestGateway_EventErrorsKeepConnectionOpen(t *testing.T) {
	e := newGatewayEnv(t)
	chat := e.groupChat(t, "ann", "bob")
	ann := e.connect(t, "ann")

	tests := []struct {
		name  string
		event string
		data  any
		want  string
	}{
		{"validation", EventMessageSend, map[string]any{"chat_id": chat.ID, "message": map[string]any{"content": " "}}, "Message must have content or attachments"},
		{"missing chat id", EventMessageSend, map[string]any{"message": map[string]any{"content": "x"}}, "chat_id is required"},
		{"not found", EventChatJoin, map[string]any{"chat_id": "nope"}, "chat not found"},
		{"unknown event", "chat:explode", map[string]any{}, "unknown event chat:explode"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := string(rune('a' + i))
			emit(t, ann, tt.event, id, tt.data)
			var ev ErrorEvent
			decodeData(t, last(readUntil(t, ann, EventError)), &ev)
			assert.Equal(t, ErrorEvent{Message: tt.want, ID: id}, ev)
		})
	}
	assert.True(t, e.registry.IsOnline("ann"))
}

func TestGateway_ChatJoinChecksEntitlementAndMembership(t *testing.T) {
	e := newGatewayEnv(t)
	chat := e.groupChat(t, "ann", "bob")
	cara := e.connect(t, "cara")

	emit(t, cara, EventChatJoin, "j1", map[string]string{"chat_id": chat.ID})
	var ev ErrorEvent
	decodeData(t, last(readUntil(t, cara, EventError)), &ev)
	assert.Equal(t, "user is not a member of this chat", ev.Message)

	_, err := e.chats.AddMembers(context.Background(), "ann", testOrg, chat.ID, []string{"cara"})
	require.NoError(t, err)

	e.store.SetPackage(testOrg, "basic")
	emit(t, cara, EventChatJoin, "j2", map[string]string{"chat_id": chat.ID})
	decodeData(t, last(readUntil(t, cara, EventError)), &ev)
	assert.Equal(t, services.ErrNoChatAccess.Error(), ev.Message)
	assert.Equal(t, "j2", ev.ID)

	e.store.SetPackage(testOrg, "platinum")
	emit(t, cara, EventChatJoin, "j3", map[string]string{"chat_id": chat.ID})
	var ack AckEvent
	decodeData(t, last(readUntil(t, cara, EventAck)), &ack)
	assert.Equal(t, "j3", ack.ID)

	emit(t, cara, EventChatLeave, "l1", map[string]string{"chat_id": chat.ID})
	readUntil(t, cara, EventAck)
	emit(t, cara, EventMessageTyping, "t1", map[string]any{"chat_id": chat.ID, "is_typing": true})
	decodeData(t, last(readUntil(t, cara, EventError)), &ev)
	assert.Equal(t, "t1", ev.ID)
}

func TestGateway_TypingRelaysToOthersOnly(t *testing.T) {
	e := newGatewayEnv(t)
	chat := e.groupChat(t, "ann", "bob")
	ann := e.connect(t, "ann")
	bob := e.connect(t, "bob")

	emit(t, ann, EventMessageTyping, "", map[string]any{"chat_id": chat.ID, "is_typing": true})

	var ev TypingEvent
	decodeData(t, last(readUntil(t, bob, EventMessageTyping)), &ev)
	assert.Equal(t, chat.ID, ev.ChatID)
	assert.Equal(t, "ann", ev.UserID)
	assert.True(t, ev.IsTyping)
	require.NotNil(t, ev.User)
	assert.Equal(t, "Lee", ev.User.LastName)

	assert.NotContains(t, eventNames(flush(t, ann)), EventMessageTyping)
}

func TestGateway_CallSignaling(t *testing.T) {
	e := newGatewayEnv(t)
	chat := e.directChat(t, "ann", "bob")
	ann := e.connect(t, "ann")
	bob := e.connect(t, "bob")

	emit(t, ann, EventCallOffer, "o1", map[string]any{
		"chatId": chat.ID, "otherUserId": "bob", "callType": "video", "offer": map[string]string{"sdp": "v=0"},
	})
	var incoming CallIncomingEvent
	decodeData(t, last(readUntil(t, bob, EventCallIncoming)), &incoming)
	assert.Equal(t, chat.ID, incoming.ChatID)
	assert.Equal(t, "ann", incoming.OtherUserID)
	assert.Equal(t, "Ann Lee", incoming.OtherUserName)
	assert.Equal(t, "video", incoming.CallType)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(incoming.Offer))

	emit(t, bob, EventCallAnswer, "", map[string]any{
		"chatId": chat.ID, "otherUserId": "ann", "answer": map[string]string{"sdp": "answer"},
	})
	var answer CallAnswerEvent
	decodeData(t, last(readUntil(t, ann, EventCallAnswer)), &answer)
	assert.Equal(t, "bob", answer.OtherUserID)
	assert.JSONEq(t, `{"sdp":"answer"}`, string(answer.Answer))

	emit(t, ann, EventCallICE, "", map[string]any{"chatId": chat.ID, "candidate": map[string]string{"candidate": "c1"}})
	var ice ICECandidateEvent
	decodeData(t, last(readUntil(t, bob, EventCallICE)), &ice)
	assert.Equal(t, "ann", ice.UserID)

	emit(t, bob, EventCallEnd, "", map[string]any{"chatId": chat.ID, "otherUserId": "ann"})
	var ended CallPeerEvent
	decodeData(t, last(readUntil(t, ann, EventCallEnded)), &ended)
	assert.Equal(t, CallPeerEvent{ChatID: chat.ID, OtherUserID: "bob"}, ended)

	emit(t, bob, EventCallReject, "", map[string]any{"chatId": chat.ID, "otherUserId": "ann"})
	readUntil(t, ann, EventCallRejected)

	emit(t, ann, EventCallOffer, "o2", map[string]any{"chatId": chat.ID, "otherUserId": "cara", "callType": "audio"})
	var ev ErrorEvent
	decodeData(t, last(readUntil(t, ann, EventError)), &ev)
	assert.Equal(t, "call participant not found", ev.Message)

	e.store.SetPackage(testOrg, "basic")
	emit(t, ann, EventCallOffer, "o3", map[string]any{"chatId": chat.ID, "otherUserId": "bob", "callType": "audio"})
	decodeData(t, last(readUntil(t, ann, EventError)), &ev)
	assert.Equal(t, services.ErrNoChatAccess.Error(), ev.Message)
}

func TestGateway_RESTMutationsReachSockets(t *testing.T) {
	e := newGatewayEnv(t)
	ctx := context.Background()
	ann := e.connect(t, "ann")
	bob := e.connect(t, "bob")
	cara := e.connect(t, "cara")

	chat := e.groupChat(t, "ann", "bob")
	e.gw.ChatCreated(ctx, chat)

	_, err := e.gw.SendMessage(ctx, "ann", testOrg, chat.ID, services.SendMessageInput{Content: strPtr("first")})
	require.NoError(t, err)
	readUntil(t, bob, EventMessageNew)

	added, err := e.chats.AddMembers(ctx, "ann", testOrg, chat.ID, []string{"cara"})
	require.NoError(t, err)
	e.gw.MembersAdded(ctx, testOrg, chat.ID, added)
	var member MemberEvent
	decodeData(t, last(readUntil(t, cara, EventMemberAdded)), &member)
	assert.Equal(t, "cara", member.UserID)
	require.NotNil(t, member.Member)

	e.gw.ChatUpdated(ctx, chat.ID, map[string]any{"name": "Platform"})
	var updated ChatUpdatedEvent
	decodeData(t, last(readUntil(t, cara, EventChatUpdated)), &updated)
	assert.Equal(t, "Platform", updated.Updates["name"])

	require.NoError(t, e.chats.RemoveMember(ctx, "ann", testOrg, chat.ID, "bob"))
	e.gw.MemberRemoved(ctx, chat.ID, "bob")
	decodeData(t, last(readUntil(t, bob, EventMemberRemoved)), &member)
	assert.Equal(t, "bob", member.UserID)

	_, err = e.gw.SendMessage(ctx, "ann", testOrg, chat.ID, services.SendMessageInput{Content: strPtr("second")})
	require.NoError(t, err)
	readUntil(t, cara, EventMessageNew)
	assert.NotContains(t, eventNames(flush(t, bob)), EventMessageNew, "removed member is out of the room")

	e.gw.ReactionChanged(ctx, chat.ID, "m-1", "cara", "👍", false)
	var reaction ReactionEvent
	decodeData(t, last(readUntil(t, ann, EventMessageReaction)), &reaction)
	assert.Equal(t, ReactionEvent{ChatID: chat.ID, MessageID: "m-1", UserID: "cara", Emoji: "👍"}, reaction)

	e.gw.MessageDeleted(ctx, chat.ID, "m-1")
	readUntil(t, cara, EventMessageDeleted)
	e.gw.ChatArchived(ctx, chat.ID, true)
	readUntil(t, cara, EventChatArchived)

	e.gw.ChatDeleted(ctx, chat.ID)
	readUntil(t, cara, EventChatDeleted)
	e.gw.ChatUpdated(ctx, chat.ID, map[string]any{"name": "ghost"})
	assert.NotContains(t, eventNames(flush(t, cara)), EventChatUpdated, "deleted chat room is emptied")
}

func TestGateway_EventRateLimit(t *testing.T) {
	e := newGatewayEnv(t, func(c *config.RealtimeConfig) {
		c.EventsPerSecond = 0.001
		c.EventBurst = 1
	})
	ann := e.connect(t, "ann")

	emit(t, ann, "noop", "1", map[string]string{})
	var ev ErrorEvent
	decodeData(t, last(readUntil(t, ann, EventError)), &ev)
	assert.Equal(t, "unknown event noop", ev.Message)

	emit(t, ann, "noop", "2", map[string]string{})
	decodeData(t, last(readUntil(t, ann, EventError)), &ev)
	assert.Equal(t, ErrorEvent{Message: "Too many events, slow down", ID: "2"}, ev)
}

func strPtr(s string) *string { return &s }
