package realtime

import (
	"context"
	"encoding/json"

	"orgchat/internal/services"
)

// Call signaling is a stateless relay; clients correlate by chat and user ids.

func (g *Gateway) onCallOffer(ctx context.Context, c *Client, data json.RawMessage) error {
	var p callOfferPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := g.requireEntitled(ctx, c.OrgID); err != nil {
		return err
	}
	if err := g.verifyCallPeers(ctx, c, p.ChatID, p.OtherUserID); err != nil {
		return err
	}
	g.publish(ctx, userRoom(c.OrgID, p.OtherUserID), EventCallIncoming, CallIncomingEvent{
		ChatID:        p.ChatID,
		OtherUserID:   c.UserID,
		OtherUserName: c.User.DisplayName(),
		CallType:      p.CallType,
		Offer:         p.Offer,
	}, "")
	return nil
}

func (g *Gateway) onCallAnswer(ctx context.Context, c *Client, data json.RawMessage) error {
	var p callAnswerPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := g.verifyCallPeers(ctx, c, p.ChatID, p.OtherUserID); err != nil {
		return err
	}
	g.publish(ctx, userRoom(c.OrgID, p.OtherUserID), EventCallAnswer, CallAnswerEvent{
		ChatID:      p.ChatID,
		OtherUserID: c.UserID,
		Answer:      p.Answer,
	}, "")
	return nil
}

// ICE candidates go to the whole chat room, not to a single peer.
func (g *Gateway) onICECandidate(ctx context.Context, c *Client, data json.RawMessage) error {
	var p icePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	room := chatRoom(p.ChatID)
	if p.ChatID == "" || !g.hub.InRoom(room, c) {
		return services.ErrNotChatMember
	}
	g.publish(ctx, room, EventCallICE, ICECandidateEvent{
		ChatID:    p.ChatID,
		UserID:    c.UserID,
		Candidate: p.Candidate,
	}, c.ID)
	return nil
}

func (g *Gateway) onCallEnd(ctx context.Context, c *Client, data json.RawMessage) error {
	return g.relayPeer(ctx, c, data, EventCallEnded)
}

func (g *Gateway) onCallReject(ctx context.Context, c *Client, data json.RawMessage) error {
	return g.relayPeer(ctx, c, data, EventCallRejected)
}

func (g *Gateway) relayPeer(ctx context.Context, c *Client, data json.RawMessage, event string) error {
	var p callPeerPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := g.verifyCallPeers(ctx, c, p.ChatID, p.OtherUserID); err != nil {
		return err
	}
	g.publish(ctx, userRoom(c.OrgID, p.OtherUserID), event, CallPeerEvent{ChatID: p.ChatID, OtherUserID: c.UserID}, "")
	return nil
}

// verifyCallPeers requires both the caller and the counterpart to be ACTIVE members of the chat.
func (g *Gateway) verifyCallPeers(ctx context.Context, c *Client, chatID, otherUserID string) error {
	if chatID == "" || otherUserID == "" {
		return services.NewValidationError("chatId and otherUserId are required")
	}
	if otherUserID == c.UserID {
		return services.NewValidationError("Cannot call yourself")
	}
	chat, _, err := g.membership.VerifyChatMembership(ctx, c.UserID, c.OrgID, chatID)
	if err != nil {
		return err
	}
	if chat.ActiveMember(otherUserID) == nil {
		return services.NewNotFoundError("call participant not found")
	}
	return nil
}
