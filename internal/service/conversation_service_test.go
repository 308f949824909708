package service_test

import (
	"context"
	"testing"
	"time"

	"tarot-ai-go/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	convs := newConversationService(t)

	conv, err := convs.Create(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConversationTitle, conv.Title)
	_, err = uuid.Parse(conv.ID)
	assert.NoError(t, err)
	assert.Empty(t, conv.Messages)
	assert.False(t, conv.CreatedAt.IsZero())
}

func TestConversationService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	convs := newConversationService(t)

	title := "X"
	conv, err := convs.Create(ctx, &title)
	require.NoError(t, err)

	list, err := convs.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
	assert.Equal(t, "X", list[0].Title)
	assert.Empty(t, list[0].Messages)

	_, err = convs.AppendMessage(ctx, conv, model.RoleUser, "hello")
	require.NoError(t, err)

	removed, err := convs.Delete(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	list, err = convs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// 已删除会话加载消息得到空列表
	require.NoError(t, convs.LoadMessages(ctx, conv))
	assert.Empty(t, conv.Messages)
}

func TestConversationService_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	convs := newConversationService(t)

	conv, err := convs.Create(ctx, nil)
	require.NoError(t, err)

	_, err = convs.AppendMessage(ctx, conv, model.RoleUser, "draw for me")
	require.NoError(t, err)
	msg, err := convs.AppendMessage(ctx, conv, model.RoleAssistant, "The Fool (0)")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, conv.ID, msg.ConversationID)
	require.Len(t, conv.Messages, 2)

	fresh, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Messages, "messages are loaded lazily")

	require.NoError(t, convs.LoadMessages(ctx, fresh))
	require.Len(t, fresh.Messages, 2)
	assert.Equal(t, "draw for me", fresh.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, fresh.Messages[1].Role)

	// 重复加载替换而不是追加
	require.NoError(t, convs.LoadMessages(ctx, fresh))
	assert.Len(t, fresh.Messages, 2)
}

func TestConversationService_AppendRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	convs := newConversationService(t)

	conv, err := convs.Create(ctx, nil)
	require.NoError(t, err)

	_, err = convs.AppendMessage(ctx, conv, model.Role("tool"), "x")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Empty(t, conv.Messages)
}

func TestConversationService_Update(t *testing.T) {
	ctx := context.Background()
	convs := newConversationService(t)

	conv, err := convs.Create(ctx, nil)
	require.NoError(t, err)
	before := conv.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	title := "Seeking the Star"
	require.NoError(t, convs.Update(ctx, conv, &title))

	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.True(t, got.UpdatedAt.After(before))

	// title 为 nil 时只刷新更新时间
	require.NoError(t, convs.Update(ctx, conv, nil))
	got, err = convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
}

func TestConversationService_GetMissing(t *testing.T) {
	_, err := newConversationService(t).Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, model.ErrConversationNotFound)
}

func TestConversationService_DeleteMissing(t *testing.T) {
	removed, err := newConversationService(t).Delete(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.False(t, removed)
}
