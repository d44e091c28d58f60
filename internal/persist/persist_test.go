package persist

import (
	"context"
	"testing"
	"time"

	"nebula-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stamped struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func TestListRoundTripKeepsInstant(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()

	at := time.Date(2024, 5, 10, 14, 30, 15, 123000000, time.FixedZone("BRT", -3*3600))
	require.NoError(t, SaveList(ctx, st, "u", KeyChatMessages, []stamped{{ID: "1", At: at}}))

	items, found, err := LoadList[stamped](ctx, st, "u", KeyChatMessages)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, items, 1)
	assert.True(t, at.Equal(items[0].At))
}

func TestLoadListAbsentAndMalformed(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()

	items, found, err := LoadList[stamped](ctx, st, "u", KeyMusicList)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, items)

	require.NoError(t, st.PutSlot(ctx, "u", KeyMusicList, []byte(`{"not":"a list"}`)))
	_, found, err = LoadList[stamped](ctx, st, "u", KeyMusicList)
	assert.True(t, found)
	assert.True(t, IsParseError(err))
}

func TestSaveNilListWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()

	require.NoError(t, SaveList[stamped](ctx, st, "u", KeyYoutubeVideos, nil))
	raw, err := st.GetSlot(ctx, "u", KeyYoutubeVideos)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()

	_, found, err := LoadValue(ctx, st, "u", KeyBackgroundType)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveValue(ctx, st, "u", KeyBackgroundType, "sunlit"))
	v, found, err := LoadValue(ctx, st, "u", KeyBackgroundType)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "sunlit", v)

	require.NoError(t, Remove(ctx, st, "u", KeyBackgroundType))
	_, found, err = LoadValue(ctx, st, "u", KeyBackgroundType)
	require.NoError(t, err)
	assert.False(t, found)
}
