package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store/storetest"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestReaderLookups(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	created, err := st.Readers().Add(ctx, "Reader@Example.com")
	require.NoError(t, err)
	require.True(t, created)

	created, err = st.Readers().Add(ctx, "Reader@Example.com")
	require.NoError(t, err)
	require.False(t, created, "duplicate email must not insert")

	ok, err := st.Readers().ExistsExact(ctx, "reader@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.Readers().ExistsFold(ctx, "reader@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Readers().ExistsExact(ctx, "Reader@Example.com")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConversationCreateIfMissingKeepsFirstRow(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	first, created, err := st.Conversations().CreateIfMissing(ctx, domain.Conversation{
		ID: uuid.New(), UserID: "u1", UserEmail: "u1@example.com", CreatedAt: t0,
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := st.Conversations().CreateIfMissing(ctx, domain.Conversation{
		ID: uuid.New(), UserID: "u1", UserEmail: "u1@example.com", CreatedAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, st.DB.Model(&domain.Conversation{}).Where("user_id = ?", "u1").Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestConversationListOrdersByLastMessage(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	ids := map[string]uuid.UUID{}
	for i, user := range []string{"quiet", "old", "recent"} {
		conv, _, err := st.Conversations().CreateIfMissing(ctx, domain.Conversation{
			ID: uuid.New(), UserID: user, CreatedAt: t0.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		ids[user] = conv.ID
	}
	require.NoError(t, st.Conversations().TouchLastMessage(ctx, ids["old"], t0.Add(time.Hour)))
	require.NoError(t, st.Conversations().TouchLastMessage(ctx, ids["recent"], t0.Add(2*time.Hour)))

	convs, err := st.Conversations().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	require.Equal(t, "recent", convs[0].UserID)
	require.Equal(t, "old", convs[1].UserID)
	require.Equal(t, "quiet", convs[2].UserID)

	convs, err = st.Conversations().List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
}

func TestConversationMarkReadMissing(t *testing.T) {
	st := storetest.New(t)
	err := st.Conversations().MarkUserRead(context.Background(), uuid.New(), t0)
	require.True(t, errors.Is(err, store.ErrRecordNotFound))
}

func TestMessagesOldestFirst(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	conv, _, err := st.Conversations().CreateIfMissing(ctx, domain.Conversation{ID: uuid.New(), UserID: "u1", CreatedAt: t0})
	require.NoError(t, err)

	for i, body := range []string{"second", "first"} {
		require.NoError(t, st.Messages().Create(ctx, &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       "u1",
			Body:           body,
			CreatedAt:      t0.Add(time.Duration(1-i) * time.Minute),
		}))
	}

	msgs, err := st.Messages().ListByConversation(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Body)
	require.Equal(t, "second", msgs[1].Body)
}

func TestPresenceUpsertAndCount(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, st.Presence().Upsert(ctx, domain.Presence{UserID: "u1", Email: "a@example.com", LastHeartbeat: t0.Add(-10 * time.Minute)}))
	require.NoError(t, st.Presence().Upsert(ctx, domain.Presence{UserID: "u1", Email: "a@example.com", LastHeartbeat: t0}))
	require.NoError(t, st.Presence().Upsert(ctx, domain.Presence{UserID: "u2", Email: "b@example.com", LastHeartbeat: t0.Add(-6 * time.Minute)}))

	n, err := st.Presence().CountSince(ctx, t0.Add(-5*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var rows int64
	require.NoError(t, st.DB.Model(&domain.Presence{}).Count(&rows).Error)
	require.EqualValues(t, 2, rows)
}

func TestSystemRowSeededAndUpdated(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	row, err := st.System().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ModeSafe, row.Mode)

	require.NoError(t, st.System().Set(ctx, domain.ModeReadOnly, "admin@example.com", t0))
	row, err = st.System().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ModeReadOnly, row.Mode)
	require.Equal(t, "admin@example.com", row.UpdatedBy)
	require.True(t, row.UpdatedAt.Equal(t0))
}

func TestGiftRevealIfPending(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	future := t0.Add(time.Hour)
	past := t0.Add(-time.Hour)
	require.NoError(t, st.Gifts().Create(ctx, &domain.Gift{ID: "live", SecretToken: "tok", ExpiresAt: &future, CreatedAt: t0}))
	require.NoError(t, st.Gifts().Create(ctx, &domain.Gift{ID: "stale", SecretToken: "tok", ExpiresAt: &past, CreatedAt: t0}))

	ok, err := st.Gifts().RevealIfPending(ctx, "live", t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Gifts().RevealIfPending(ctx, "live", t0)
	require.NoError(t, err)
	require.False(t, ok, "second reveal must not match")

	ok, err = st.Gifts().RevealIfPending(ctx, "stale", t0)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.Gifts().RevealIfPending(ctx, "missing", t0)
	require.NoError(t, err)
	require.False(t, ok)

	g, err := st.Gifts().Get(ctx, "live")
	require.NoError(t, err)
	require.True(t, g.Revealed)
	require.NotNil(t, g.RevealAt)

	_, err = st.Gifts().Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Readers().Add(ctx, "tx@example.com"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := st.Readers().ExistsExact(ctx, "tx@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}
