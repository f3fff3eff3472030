package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgchat/internal/models"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var chatCols = []string{
	"id", "organization_id", "type", "name", "description", "avatar_url",
	"created_by", "status", "last_message_at", "last_message_id", "created_at", "updated_at",
}

var memberCols = []string{
	"id", "chat_id", "user_id", "role", "status", "unread_count", "last_read_at", "created_at",
	"email", "first_name", "last_name", "avatar_url",
}

func TestChatRepository_Create(t *testing.T) {
	now := time.Now()
	name := "Ops"

	tests := []struct {
		name      string
		mockSetup func(sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "chat with members",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chats")).
					WithArgs(sqlmock.AnyArg(), "org-1", "group", &name, nil, nil, "u-1", "active").
					WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_members")).
					WithArgs(sqlmock.AnyArg(), "u-1", "owner").
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_members")).
					WithArgs(sqlmock.AnyArg(), "u-2", "member").
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, now))
				mock.ExpectCommit()
			},
		},
		{
			name: "member insert fails",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chats")).
					WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_members")).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.mockSetup(mock)
			repo := NewChatRepository(db)

			chat := &models.Chat{
				OrganizationID: "org-1",
				Type:           models.ChatTypeGroup,
				Name:           &name,
				CreatedBy:      "u-1",
			}
			members := []*models.ChatMember{
				{UserID: "u-1", Role: models.ChatRoleOwner},
				{UserID: "u-2", Role: models.ChatRoleMember},
			}
			err := repo.Create(context.Background(), chat, members)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, chat.ID)
				assert.Equal(t, models.ChatStatusActive, chat.Status)
				require.Len(t, chat.Members, 2)
				assert.Equal(t, int64(2), chat.Members[1].ID)
				assert.Equal(t, chat.ID, chat.Members[1].ChatID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChatRepository_FindDirectID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("c.type = 'direct'")).
		WithArgs("org-1", "a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("chat-1"))
	mock.ExpectQuery(regexp.QuoteMeta("c.type = 'direct'")).
		WithArgs("org-1", "a", "c").
		WillReturnError(sql.ErrNoRows)

	id, err := repo.FindDirectID(context.Background(), "org-1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", id)

	_, err = repo.FindDirectID(context.Background(), "org-1", "a", "c")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM chats c WHERE c.id = $1")).
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows(chatCols).
			AddRow("chat-1", "org-1", "direct", nil, nil, nil, "a", "active", now, "m-1", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_members m")).
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow(1, "chat-1", "a", "member", "active", 0, nil, now, "a@x.io", "Ann", "Lee", "").
			AddRow(2, "chat-1", "b", "member", "active", 3, now, now, "b@x.io", "Bob", "", ""))

	chat, err := repo.GetByID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChatTypeDirect, chat.Type)
	assert.Nil(t, chat.Name)
	require.NotNil(t, chat.LastMessageID)
	assert.Equal(t, "m-1", *chat.LastMessageID)
	require.Len(t, chat.Members, 2)
	assert.Equal(t, 3, chat.Members[1].UnreadCount)
	assert.Equal(t, "Bob", chat.Members[1].User.FirstName)
	assert.Equal(t, "b", chat.Members[1].User.ID)
	assert.NotNil(t, chat.Members[1].LastReadAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM chats c WHERE c.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	now := time.Now()
	group := models.ChatTypeGroup

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM chats c WHERE")).
		WithArgs("org-1", "u-1", "group", "%ops%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC")).
		WithArgs("org-1", "u-1", "group", "%ops%", 20, 20).
		WillReturnRows(sqlmock.NewRows(chatCols).
			AddRow("chat-9", "org-1", "group", "Ops", nil, nil, "u-1", "active", nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("m.chat_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow(5, "chat-9", "u-1", "owner", "active", 0, nil, now, "u1@x.io", "U", "One", ""))

	chats, total, err := repo.List(context.Background(), "u-1", "org-1", models.ChatFilter{
		Type:   &group,
		Search: " ops ",
		Page:   2,
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, chats, 1)
	assert.Equal(t, "Ops", *chats[0].Name)
	assert.Nil(t, chats[0].LastMessageAt)
	require.Len(t, chats[0].Members, 1)
	assert.Equal(t, models.ChatRoleOwner, chats[0].Members[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_List_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM chats c WHERE")).
		WithArgs("org-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("c.status = 'active' ORDER BY")).
		WithArgs("org-1", "u-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(chatCols))

	chats, total, err := repo.List(context.Background(), "u-1", "org-1", models.ChatFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, chats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_AddMembers(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (chat_id, user_id)")).
		WithArgs("chat-1", "u-2", "member").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (chat_id, user_id)")).
		WithArgs("chat-1", "u-3", "member").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AddMembers(context.Background(), "chat-1", []string{"u-2", "u-3"}, models.ChatRoleMember)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_SetMemberStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE chat_members SET status = $3")).
		WithArgs("chat-1", "u-2", "removed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chat_members SET status = $3")).
		WithArgs("chat-1", "ghost", "left").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.SetMemberStatus(context.Background(), "chat-1", "u-2", models.MemberStatusRemoved))
	assert.ErrorIs(t, repo.SetMemberStatus(context.Background(), "chat-1", "ghost", models.MemberStatusLeft), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_MarkRead(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET unread_count = 0, last_read_at = NOW()")).
		WithArgs("chat-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "chat-1", "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_ListActiveChatIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.user_id = $1 AND m.status = 'active'")).
		WithArgs("u-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2"))

	ids, err := repo.ListActiveChatIDs(context.Background(), "u-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
