package realtime

import (
	"encoding/json"

	"orgchat/internal/models"
	"orgchat/internal/services"
)

// Client → server.
const (
	EventMessageSend   = "message:send"
	EventMessageTyping = "message:typing"
	EventChatJoin      = "chat:join"
	EventChatLeave     = "chat:leave"
	EventCallOffer     = "call:offer"
	EventCallAnswer    = "call:answer"
	EventCallICE       = "call:ice-candidate"
	EventCallEnd       = "call:end"
	EventCallReject    = "call:reject"
)

// Server → client.
const (
	EventMessageNew      = "message:new"
	EventMessageDeleted  = "message:deleted"
	EventMessageReaction = "message:reaction"
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
	EventMemberAdded     = "chat:member:added"
	EventMemberRemoved   = "chat:member:removed"
	EventChatUpdated     = "chat:updated"
	EventChatArchived    = "chat:archived"
	EventChatDeleted     = "chat:deleted"
	EventCallIncoming    = "call:incoming"
	EventCallEnded       = "call:ended"
	EventCallRejected    = "call:rejected"
	EventAck             = "ack"
	EventError           = "error"
)

// Envelope is one websocket text frame. ID is optional; when set the server
// answers with an ack (or an error) carrying the same id.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

type sendPayload struct {
	ChatID  string                    `json:"chat_id"`
	Message services.SendMessageInput `json:"message"`
}

type typingPayload struct {
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type chatPayload struct {
	ChatID string `json:"chat_id"`
}

type callOfferPayload struct {
	ChatID      string          `json:"chatId"`
	OtherUserID string          `json:"otherUserId"`
	CallType    string          `json:"callType"`
	Offer       json.RawMessage `json:"offer"`
}

type callAnswerPayload struct {
	ChatID      string          `json:"chatId"`
	OtherUserID string          `json:"otherUserId"`
	Answer      json.RawMessage `json:"answer"`
}

type icePayload struct {
	ChatID    string          `json:"chatId"`
	Candidate json.RawMessage `json:"candidate"`
}

type callPeerPayload struct {
	ChatID      string `json:"chatId"`
	OtherUserID string `json:"otherUserId"`
}

type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func summarize(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, AvatarURL: u.AvatarURL}
}

type MessageNewEvent struct {
	ChatID  string          `json:"chat_id"`
	Message *models.Message `json:"message"`
}

type TypingEvent struct {
	ChatID   string       `json:"chat_id"`
	UserID   string       `json:"user_id"`
	User     *UserSummary `json:"user"`
	IsTyping bool         `json:"is_typing"`
}

type UserOnlineEvent struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserOfflineEvent struct {
	UserID string `json:"user_id"`
}

type MemberEvent struct {
	ChatID string             `json:"chat_id"`
	UserID string             `json:"user_id"`
	Member *models.ChatMember `json:"member,omitempty"`
}

type ChatUpdatedEvent struct {
	ChatID  string         `json:"chat_id"`
	Updates map[string]any `json:"updates"`
}

type ChatArchivedEvent struct {
	ChatID   string `json:"chat_id"`
	Archived bool   `json:"archived"`
}

type ChatDeletedEvent struct {
	ChatID string `json:"chat_id"`
}

type MessageDeletedEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

type ReactionEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Removed   bool   `json:"removed"`
}

type CallIncomingEvent struct {
	ChatID        string          `json:"chatId"`
	OtherUserID   string          `json:"otherUserId"`
	OtherUserName string          `json:"otherUserName"`
	CallType      string          `json:"callType"`
	Offer         json.RawMessage `json:"offer"`
}

type CallAnswerEvent struct {
	ChatID      string          `json:"chatId"`
	OtherUserID string          `json:"otherUserId"`
	Answer      json.RawMessage `json:"answer"`
}

type ICECandidateEvent struct {
	ChatID    string          `json:"chatId"`
	UserID    string          `json:"userId"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallPeerEvent struct {
	ChatID      string `json:"chatId"`
	OtherUserID string `json:"otherUserId"`
}

type AckEvent struct {
	ID string `json:"id"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func orgRoom(orgID string) string          { return "org:" + orgID }
func userRoom(orgID, userID string) string { return "user:" + orgID + ":" + userID }
func chatRoom(chatID string) string        { return "chat:" + chatID }
