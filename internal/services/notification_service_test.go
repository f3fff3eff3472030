package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orgchat/internal/models"
	"orgchat/internal/repositories/repotest"
)

type presenceStub map[string]bool

func (p presenceStub) IsOnline(userID string) bool { return p[userID] }

type recordingChannel struct {
	name string
	mu   sync.Mutex
	got  []string
	err  error
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Push(_ context.Context, user *models.User, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, user.ID+":"+n.Title)
	return c.err
}

func (c *recordingChannel) pushed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func boolPtr(b bool) *bool { return &b }

func TestCreateNotification_Preferences(t *testing.T) {
	store := repotest.NewStore()
	svc := NewNotificationService(store.NotificationRepo(), nil, nil, zap.NewNop())
	ctx := context.Background()

	store.Preferences["muted|org-1"] = &models.NotificationPreference{
		InAppEnabled: true,
		EmailEnabled: true,
		Preferences:  map[string]models.ChannelPreference{"chat_messages": {InApp: boolPtr(false)}},
	}
	store.Preferences["off|org-1"] = &models.NotificationPreference{InAppEnabled: false}

	tests := []struct {
		name   string
		userID string
		stored bool
	}{
		{"no preference row", "fresh", true},
		{"class disabled in app", "muted", false},
		{"in app disabled globally", "off", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := svc.CreateNotification(ctx, NotificationInput{
				UserID:         tt.userID,
				OrganizationID: "org-1",
				Type:           models.NotificationChatUnread,
				Title:          "New message in Ops",
				Message:        "Ann: hi",
				Link:           chatLink("chat-1"),
				Metadata:       map[string]any{"chat_id": "chat-1"},
			})
			require.NoError(t, err)
			if !tt.stored {
				assert.Nil(t, n)
				assert.Empty(t, store.NotificationsFor(tt.userID))
				return
			}
			require.NotNil(t, n)
			assert.NotEmpty(t, n.ID)
			assert.Equal(t, chatLink("chat-1"), n.Data["link"])
			assert.Equal(t, map[string]any{"chat_id": "chat-1"}, n.Data["metadata"])
			assert.Len(t, store.NotificationsFor(tt.userID), 1)
		})
	}
}

func TestCreateNotification_OfflineMentionIsPushed(t *testing.T) {
	store := repotest.NewStore()
	store.AddUser("org-1", &models.User{ID: "bob", Email: "bob@acme.io"})
	store.AddUser("org-1", &models.User{ID: "cara", Email: "cara@acme.io"})
	ch := &recordingChannel{name: "email"}
	pusher := NewPushDispatcher(store.Users(), 2, 10, zap.NewNop(), ch)
	defer pusher.Shutdown()

	svc := NewNotificationService(store.NotificationRepo(), presenceStub{"cara": true}, pusher, zap.NewNop())
	ctx := context.Background()

	for _, in := range []NotificationInput{
		{UserID: "bob", OrganizationID: "org-1", Type: models.NotificationChatMention, Title: "mention bob"},
		{UserID: "cara", OrganizationID: "org-1", Type: models.NotificationChatMention, Title: "mention cara"},
		{UserID: "bob", OrganizationID: "org-1", Type: models.NotificationChatUnread, Title: "unread bob"},
	} {
		_, err := svc.CreateNotification(ctx, in)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(ch.pushed()) == 1 }, time.Second, 10*time.Millisecond)
	// give stray jobs a chance to surface
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"bob:mention bob"}, ch.pushed())
}

func TestPushDispatcher_RespectsChannelPreference(t *testing.T) {
	store := repotest.NewStore()
	store.AddUser("org-1", &models.User{ID: "bob", Email: "bob@acme.io", TelegramChatID: 42})
	email := &recordingChannel{name: "email", err: errors.New("smtp down")}
	tg := &recordingChannel{name: "telegram"}
	d := NewPushDispatcher(store.Users(), 1, 4, zap.NewNop(), email, tg)
	defer d.Shutdown()

	pref := &models.NotificationPreference{InAppEnabled: true, EmailEnabled: false}
	ok := d.Enqueue(PushJob{
		Notification: &models.Notification{ID: "n-1", UserID: "bob", Type: models.NotificationChatMention, Title: "hey"},
		Preference:   pref,
	})
	require.True(t, ok)
	ok = d.Enqueue(PushJob{
		Notification: &models.Notification{ID: "n-2", UserID: "ghost", Type: models.NotificationChatMention, Title: "lost"},
	})
	require.True(t, ok)
	ok = d.Enqueue(PushJob{
		Notification: &models.Notification{ID: "n-3", UserID: "bob", Type: models.NotificationChatMention, Title: "again"},
	})
	require.True(t, ok)

	require.Eventually(t, func() bool { return len(tg.pushed()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"bob:hey", "bob:again"}, tg.pushed())
	assert.Equal(t, []string{"bob:again"}, email.pushed())
}

func TestPushDispatcher_EnqueueAfterShutdown(t *testing.T) {
	store := repotest.NewStore()
	d := NewPushDispatcher(store.Users(), 1, 1, zap.NewNop(), &recordingChannel{name: "email"})
	d.Shutdown()
	assert.False(t, d.Enqueue(PushJob{Notification: &models.Notification{ID: "n"}}))

	idle := NewPushDispatcher(store.Users(), 1, 1, zap.NewNop())
	defer idle.Shutdown()
	assert.False(t, idle.Enqueue(PushJob{Notification: &models.Notification{ID: "n"}}), "no channels configured")
}

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) SendMentionEmail(email, title, message, chatURL string) error {
	args := m.Called(email, title, message, chatURL)
	return args.Error(0)
}

func TestEmailChannel_Push(t *testing.T) {
	em := new(mockEmailService)
	em.On("SendMentionEmail", "bob@acme.io", "Ann mentioned you", "Ann mentioned you: hi", "https://app.test/chat?chatId=chat-7").
		Return(nil).Once()

	ch := NewEmailChannel(em, "https://app.test")
	assert.Equal(t, "email", ch.Name())

	n := &models.Notification{
		Title:   "Ann mentioned you",
		Message: "Ann mentioned you: hi",
		Data:    map[string]any{"link": chatLink("chat-7")},
	}
	require.NoError(t, ch.Push(context.Background(), &models.User{ID: "bob", Email: "bob@acme.io"}, n))
	require.NoError(t, ch.Push(context.Background(), &models.User{ID: "nomail"}, n))
	em.AssertExpectations(t)
}

func TestChatURL(t *testing.T) {
	assert.Equal(t, "https://app.test/chat", chatURL("https://app.test", &models.Notification{}))
	assert.Equal(t, "https://app.test/chat?chatId=c1",
		chatURL("https://app.test", &models.Notification{Data: map[string]any{"link": chatLink("c1")}}))
}

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegramService_Push(t *testing.T) {
	bot := new(mockTelegramSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.ParseMode == tgbotapi.ModeHTML &&
			msg.Text == "<b>Ann &lt;admin&gt;</b>\nhello"
	})).Return(nil).Once()

	svc := &TelegramService{bot: bot, log: zap.NewNop()}
	assert.Equal(t, "telegram", svc.Name())

	n := &models.Notification{Title: "Ann <admin>", Message: "hello"}
	require.NoError(t, svc.Push(context.Background(), &models.User{ID: "bob", TelegramChatID: 42}, n))
	require.NoError(t, svc.Push(context.Background(), &models.User{ID: "cara"}, n))
	bot.AssertExpectations(t)

	var nilSvc *TelegramService
	assert.NoError(t, nilSvc.SendMessage(1, "x"))
}
