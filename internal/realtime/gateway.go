package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"orgchat/internal/config"
	"orgchat/internal/middleware"
	"orgchat/internal/models"
	"orgchat/internal/repositories"
	"orgchat/internal/services"
)

const (
	chatLockStripes     = 64
	presenceLockStripes = 64
	// browsers cannot set headers on a websocket request, so the token may
	// travel as the subprotocol pair ["access_token", "<jwt>"]
	tokenSubprotocol = "access_token"
)

// ChatOperations is the part of the chat service the gateway drives.
type ChatOperations interface {
	SendMessage(ctx context.Context, userID, orgID, chatID string, in services.SendMessageInput) (*models.Message, error)
	ActiveChatIDs(ctx context.Context, userID, orgID string) ([]string, error)
}

type TokenVerifier interface {
	Verify(token string) (*middleware.Claims, error)
}

type GatewayDeps struct {
	Verifier       TokenVerifier
	Users          repositories.UserRepository
	Membership     services.MembershipValidator
	Entitlement    services.EntitlementChecker
	Chats          ChatOperations
	Registry       *Registry
	Hub            *Hub
	Broadcaster    Broadcaster
	Config         config.RealtimeConfig
	AllowedOrigins []string
	Logger         *zap.Logger
}

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

type Gateway struct {
	verifier    TokenVerifier
	users       repositories.UserRepository
	membership  services.MembershipValidator
	entitlement services.EntitlementChecker
	chats       ChatOperations
	registry    *Registry
	hub         *Hub
	bc          Broadcaster
	cfg         config.RealtimeConfig
	log         *zap.Logger

	upgrader     websocket.Upgrader
	handlers     map[string]eventHandler
	locks        [chatLockStripes]sync.Mutex
	presence     [presenceLockStripes]sync.Mutex
	eventTimeout time.Duration
}

func NewGateway(d GatewayDeps) *Gateway {
	g := &Gateway{
		verifier:     d.Verifier,
		users:        d.Users,
		membership:   d.Membership,
		entitlement:  d.Entitlement,
		chats:        d.Chats,
		registry:     d.Registry,
		hub:          d.Hub,
		bc:           d.Broadcaster,
		cfg:          d.Config,
		log:          d.Logger,
		eventTimeout: 10 * time.Second,
	}
	if g.bc == nil {
		g.bc = NewLocalBroadcaster(g.hub)
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{tokenSubprotocol},
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}
	g.handlers = map[string]eventHandler{
		EventMessageSend:   g.onMessageSend,
		EventMessageTyping: g.onTyping,
		EventChatJoin:      g.onChatJoin,
		EventChatLeave:     g.onChatLeave,
		EventCallOffer:     g.onCallOffer,
		EventCallAnswer:    g.onCallAnswer,
		EventCallICE:       g.onICECandidate,
		EventCallEnd:       g.onCallEnd,
		EventCallReject:    g.onCallReject,
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// extractToken checks the Authorization header, then the subprotocol pair,
// then the "token" query parameter.
func extractToken(r *http.Request) string {
	if t := middleware.BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	protocols := websocket.Subprotocols(r)
	for i := 0; i+1 < len(protocols); i++ {
		if protocols[i] == tokenSubprotocol {
			return protocols[i+1]
		}
	}
	return r.URL.Query().Get("token")
}

// ServeWS authenticates before upgrading: auth failures get 401 and a missing
// organization membership gets 403, with no socket and no event.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := g.verifier.Verify(extractToken(r))
	if err != nil {
		g.log.Info("[ws] handshake rejected: bad token", zap.String("remote", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := g.users.GetByID(r.Context(), claims.UserID)
	if err != nil || !user.EmailVerified {
		g.log.Info("[ws] handshake rejected: user unresolved or unverified",
			zap.String("user_id", claims.UserID), zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	orgID := q.Get("organizationId")
	if orgID == "" {
		orgID = q.Get("organization_id")
	}
	if _, err := g.membership.VerifyMembership(r.Context(), user.ID, orgID); err != nil {
		g.log.Info("[ws] handshake rejected: not an organization member",
			zap.String("user_id", user.ID), zap.String("organization_id", orgID), zap.Error(err))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		g.log.Warn("[ws] upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	c := &Client{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		OrgID:   orgID,
		User:    user,
		gw:      g,
		conn:    conn,
		send:    make(chan []byte, g.cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(g.cfg.EventsPerSecond), g.cfg.EventBurst),
	}
	g.register(c)

	go c.writePump()
	go c.readPump()
}

func (g *Gateway) register(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), g.eventTimeout)
	defer cancel()

	g.hub.Join(orgRoom(c.OrgID), c)
	g.hub.Join(userRoom(c.OrgID, c.UserID), c)

	// chat rooms only for entitled organizations; later changes need chat:join
	if g.entitlement.HasChatAccess(ctx, c.OrgID) {
		ids, err := g.chats.ActiveChatIDs(ctx, c.UserID, c.OrgID)
		if err != nil {
			g.log.Warn("[ws] load chat rooms failed", zap.String("user_id", c.UserID), zap.Error(err))
		}
		for _, id := range ids {
			g.hub.Join(chatRoom(id), c)
		}
	}

	// rooms first, so a registered connection is fully subscribed
	mu := g.presenceLock(c.UserID, c.OrgID)
	mu.Lock()
	if first := g.registry.Add(c); first {
		g.publish(ctx, orgRoom(c.OrgID), EventUserOnline, UserOnlineEvent{
			UserID:    c.UserID,
			FirstName: c.User.FirstName,
			LastName:  c.User.LastName,
		}, c.ID)
	}
	mu.Unlock()
	g.log.Info("[ws] connected",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.String("organization_id", c.OrgID))
}

func (g *Gateway) unregister(c *Client) {
	c.close()
	g.hub.LeaveAll(c)

	// presence edges and their events are ordered per user and organization
	mu := g.presenceLock(c.UserID, c.OrgID)
	mu.Lock()
	if g.registry.Remove(c) {
		ctx, cancel := context.WithTimeout(context.Background(), g.eventTimeout)
		g.publish(ctx, orgRoom(c.OrgID), EventUserOffline, UserOfflineEvent{UserID: c.UserID}, c.ID)
		cancel()
	}
	mu.Unlock()
	g.log.Info("[ws] disconnected", zap.String("conn_id", c.ID), zap.String("user_id", c.UserID))
}

func (g *Gateway) dispatch(c *Client, env Envelope) {
	h, ok := g.handlers[env.Event]
	if !ok {
		c.emit(EventError, ErrorEvent{Message: "unknown event " + env.Event, ID: env.ID})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.eventTimeout)
	defer cancel()

	if err := h(ctx, c, env.Data); err != nil {
		g.log.Warn("[ws] event failed",
			zap.String("event", env.Event),
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.UserID),
			zap.String("organization_id", c.OrgID),
			zap.Error(err))
		c.emit(EventError, ErrorEvent{Message: clientMessage(err), ID: env.ID})
		return
	}
	if env.ID != "" {
		c.emit(EventAck, AckEvent{ID: env.ID})
	}
}

func clientMessage(err error) string {
	var ce *services.ChatError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "Internal server error"
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return services.NewValidationError("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return services.NewValidationError("malformed payload")
	}
	return nil
}

func (g *Gateway) requireEntitled(ctx context.Context, orgID string) error {
	if !g.entitlement.HasChatAccess(ctx, orgID) {
		return services.ErrNoChatAccess
	}
	return nil
}

func (g *Gateway) publish(ctx context.Context, room, event string, data any, except string) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		g.log.Error("[ws] encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	if err := g.bc.Publish(ctx, room, frame, except); err != nil {
		g.log.Warn("[ws] publish failed", zap.String("room", room), zap.String("event", event), zap.Error(err))
	}
}

func (g *Gateway) joinUser(ctx context.Context, room, orgID, userID string) {
	if err := g.bc.JoinUser(ctx, room, orgID, userID); err != nil {
		g.log.Warn("[ws] join failed", zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
	}
}

func (g *Gateway) evict(ctx context.Context, room, userID string) {
	if err := g.bc.Evict(ctx, room, userID); err != nil {
		g.log.Warn("[ws] evict failed", zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
	}
}

func (g *Gateway) chatLock(chatID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chatID))
	return &g.locks[h.Sum32()%chatLockStripes]
}

func (g *Gateway) presenceLock(userID, orgID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(orgID))
	return &g.presence[h.Sum32()%presenceLockStripes]
}

func (g *Gateway) onMessageSend(ctx context.Context, c *Client, data json.RawMessage) error {
	var p sendPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.ChatID == "" {
		return services.NewValidationError("chat_id is required")
	}
	_, err := g.SendMessage(ctx, c.UserID, c.OrgID, p.ChatID, p.Message)
	return err
}

func (g *Gateway) onTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	var p typingPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	room := chatRoom(p.ChatID)
	if p.ChatID == "" || !g.hub.InRoom(room, c) {
		return services.ErrNotChatMember
	}
	g.publish(ctx, room, EventMessageTyping, TypingEvent{
		ChatID:   p.ChatID,
		UserID:   c.UserID,
		User:     summarize(c.User),
		IsTyping: p.IsTyping,
	}, c.ID)
	return nil
}

func (g *Gateway) onChatJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var p chatPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.ChatID == "" {
		return services.NewValidationError("chat_id is required")
	}
	if err := g.requireEntitled(ctx, c.OrgID); err != nil {
		return err
	}
	if _, _, err := g.membership.VerifyChatMembership(ctx, c.UserID, c.OrgID, p.ChatID); err != nil {
		return err
	}
	g.hub.Join(chatRoom(p.ChatID), c)
	return nil
}

func (g *Gateway) onChatLeave(_ context.Context, c *Client, data json.RawMessage) error {
	var p chatPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	g.hub.Leave(chatRoom(p.ChatID), c)
	return nil
}

// SendMessage persists through the chat service and broadcasts message:new.
// Socket and REST sends share it, and the per-chat lock keeps broadcast order
// equal to persistence order.
func (g *Gateway) SendMessage(ctx context.Context, userID, orgID, chatID string, in services.SendMessageInput) (*models.Message, error) {
	mu := g.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := g.chats.SendMessage(ctx, userID, orgID, chatID, in)
	if err != nil {
		return nil, err
	}
	g.publish(ctx, chatRoom(chatID), EventMessageNew, MessageNewEvent{ChatID: chatID, Message: msg}, "")
	return msg, nil
}

// ChatCreated subscribes the members' live connections to the new chat room.
func (g *Gateway) ChatCreated(ctx context.Context, chat *models.Chat) {
	for _, m := range chat.Members {
		if m.Status == models.MemberStatusActive {
			g.joinUser(ctx, chatRoom(chat.ID), chat.OrganizationID, m.UserID)
		}
	}
}

func (g *Gateway) MembersAdded(ctx context.Context, orgID, chatID string, members []*models.ChatMember) {
	for _, m := range members {
		g.joinUser(ctx, chatRoom(chatID), orgID, m.UserID)
		g.publish(ctx, chatRoom(chatID), EventMemberAdded, MemberEvent{ChatID: chatID, UserID: m.UserID, Member: m}, "")
	}
}

// MemberRemoved covers both removal and leaving; the member still receives the event.
func (g *Gateway) MemberRemoved(ctx context.Context, chatID, userID string) {
	g.publish(ctx, chatRoom(chatID), EventMemberRemoved, MemberEvent{ChatID: chatID, UserID: userID}, "")
	g.evict(ctx, chatRoom(chatID), userID)
}

func (g *Gateway) ChatUpdated(ctx context.Context, chatID string, updates map[string]any) {
	g.publish(ctx, chatRoom(chatID), EventChatUpdated, ChatUpdatedEvent{ChatID: chatID, Updates: updates}, "")
}

func (g *Gateway) ChatArchived(ctx context.Context, chatID string, archived bool) {
	g.publish(ctx, chatRoom(chatID), EventChatArchived, ChatArchivedEvent{ChatID: chatID, Archived: archived}, "")
}

func (g *Gateway) ChatDeleted(ctx context.Context, chatID string) {
	g.publish(ctx, chatRoom(chatID), EventChatDeleted, ChatDeletedEvent{ChatID: chatID}, "")
	g.evict(ctx, chatRoom(chatID), "")
}

func (g *Gateway) MessageDeleted(ctx context.Context, chatID, messageID string) {
	g.publish(ctx, chatRoom(chatID), EventMessageDeleted, MessageDeletedEvent{ChatID: chatID, MessageID: messageID}, "")
}

func (g *Gateway) ReactionChanged(ctx context.Context, chatID, messageID, userID, emoji string, removed bool) {
	g.publish(ctx, chatRoom(chatID), EventMessageReaction, ReactionEvent{
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		Removed:   removed,
	}, "")
}

func (g *Gateway) OnlineUsers(orgID string) []string {
	return g.registry.OnlineUsers(orgID)
}

// Close disconnects every local connection; used on shutdown.
func (g *Gateway) Close() {
	for _, c := range g.registry.Clients() {
		c.close()
	}
}
