package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nebula-backend/internal/dispatch"
	"nebula-backend/internal/models"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/persist"
	"nebula-backend/internal/store/file"
	"nebula-backend/internal/store/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []dispatch.Request
	reply    *dispatch.Reply
	err      error
}

func (f *fakeDispatcher) Send(_ context.Context, req dispatch.Request) (*dispatch.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == nil {
		return &dispatch.Reply{}, nil
	}
	return f.reply, nil
}

var testIdentity = models.SessionIdentity{UserID: "user-1", Email: "ana@example.com", SessionID: "abcd1234"}

func openTestConversation(t *testing.T, st *memory.Store, d Dispatcher, n notify.Notifier) *Conversation {
	t.Helper()
	clock := time.Date(2024, 5, 10, 14, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	c, err := OpenConversation(context.Background(), testIdentity.UserID, st, d, n, zerolog.Nop(),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))
	require.NoError(t, err)
	return c
}

func TestSendMessageAppendsUserAndReply(t *testing.T) {
	st := memory.NewStore()
	d := &fakeDispatcher{reply: &dispatch.Reply{Reply: "Hi there"}}
	c := openTestConversation(t, st, d, nil)

	res, err := c.SendMessage(context.Background(), testIdentity, "Hello", nil)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.False(t, res.DispatchFailed)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, models.MessageTypeConversation, msgs[0].Type)
	assert.Equal(t, models.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, "Hi there", msgs[1].Content)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
	assert.False(t, c.IsLoading())

	require.Len(t, d.requests, 1)
	assert.Equal(t, "Hello", d.requests[0].Message)
	assert.Equal(t, testIdentity, d.requests[0].Session)
}

func TestSendMessageDispatchFailureAppendsApology(t *testing.T) {
	st := memory.NewStore()
	d := &fakeDispatcher{err: &dispatch.DispatchError{StatusCode: 500, Status: "500 Internal Server Error", Err: errors.New("boom")}}
	warnings := notify.NewCollector()
	c := openTestConversation(t, st, d, warnings)

	res, err := c.SendMessage(context.Background(), testIdentity, "Hello", nil)
	require.NoError(t, err)
	assert.True(t, res.DispatchFailed)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, ApologyReply, msgs[1].Content)
	assert.Empty(t, msgs[1].Attachments)

	notices := warnings.Drain(testIdentity.UserID)
	require.Len(t, notices, 1)
	assert.Equal(t, SendFailureNotice, notices[0])
}

func TestSendMessageEmptyReplyUsesFallback(t *testing.T) {
	st := memory.NewStore()
	c := openTestConversation(t, st, &fakeDispatcher{}, nil)

	_, err := c.SendMessage(context.Background(), testIdentity, "Olá", nil)
	require.NoError(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, FallbackReply, msgs[1].Content)
}

func TestSendMessageCarriesReplyAttachments(t *testing.T) {
	st := memory.NewStore()
	img := models.Attachment{Kind: models.AttachmentImage, Data: "aGk=", Name: "cat.png", MimeType: "image/png"}
	c := openTestConversation(t, st, &fakeDispatcher{reply: &dispatch.Reply{Reply: "look", Attachments: []models.Attachment{img}}}, nil)

	_, err := c.SendMessage(context.Background(), testIdentity, "show me", nil)
	require.NoError(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []models.Attachment{img}, msgs[1].Attachments)
	assert.Equal(t, models.MessageTypeImage, msgs[1].Type)
}

func TestSendMessageBlankIsNoop(t *testing.T) {
	st := memory.NewStore()
	d := &fakeDispatcher{}
	c := openTestConversation(t, st, d, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		res, err := c.SendMessage(context.Background(), testIdentity, text, nil)
		require.NoError(t, err)
		assert.False(t, res.Sent)
	}
	assert.Empty(t, c.Messages())
	assert.Empty(t, d.requests)
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	st := memory.NewStore()
	d := &fakeDispatcher{reply: &dispatch.Reply{Reply: "got it"}}
	c := openTestConversation(t, st, d, nil)

	audio := models.Attachment{Kind: models.AttachmentAudio, Data: "AAEC", Name: "recording-1.webm", MimeType: "audio/webm"}
	res, err := c.SendMessage(context.Background(), testIdentity, "", []models.Attachment{audio})
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, models.MessageTypeAudio, res.User.Type)
	require.Len(t, d.requests, 1)
	assert.Equal(t, []models.Attachment{audio}, d.requests[0].Attachments)
}

func TestConversationPersistsAndReloads(t *testing.T) {
	st := memory.NewStore()
	c := openTestConversation(t, st, &fakeDispatcher{reply: &dispatch.Reply{Reply: "Hi there"}}, nil)

	_, err := c.SendMessage(context.Background(), testIdentity, "Hello", nil)
	require.NoError(t, err)
	before := c.Messages()

	reopened := openTestConversation(t, st, &fakeDispatcher{}, nil)
	after := reopened.Messages()
	require.Len(t, after, 2)
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Content, after[i].Content)
		assert.True(t, before[i].Timestamp.Equal(after[i].Timestamp), "timestamp instant must survive a reload")
	}
}

func TestClearThenReloadIsEmpty(t *testing.T) {
	st := memory.NewStore()
	c := openTestConversation(t, st, &fakeDispatcher{reply: &dispatch.Reply{Reply: "ok"}}, nil)

	_, err := c.SendMessage(context.Background(), testIdentity, "Hello", nil)
	require.NoError(t, err)
	require.NoError(t, c.ClearMessages(context.Background()))
	assert.Empty(t, c.Messages())

	_, err = st.GetSlot(context.Background(), testIdentity.UserID, persist.KeyChatMessages)
	assert.Error(t, err)

	reopened := openTestConversation(t, st, &fakeDispatcher{}, nil)
	assert.Empty(t, reopened.Messages())
}

func TestOpenConversationIgnoresCorruptHistory(t *testing.T) {
	st := memory.NewStore()
	require.NoError(t, st.PutSlot(context.Background(), testIdentity.UserID, persist.KeyChatMessages, []byte("{not json")))

	c := openTestConversation(t, st, &fakeDispatcher{}, nil)
	assert.Empty(t, c.Messages())
}

type blockingDispatcher struct {
	release chan struct{}
	entered chan struct{}
}

func (b *blockingDispatcher) Send(ctx context.Context, _ dispatch.Request) (*dispatch.Reply, error) {
	b.entered <- struct{}{}
	<-b.release
	return &dispatch.Reply{Reply: "late"}, nil
}

func TestIsLoadingWhileAwaitingReply(t *testing.T) {
	st := memory.NewStore()
	d := &blockingDispatcher{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	chat := NewChatService(st, d, nil, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := chat.SendAttachments(context.Background(), testIdentity, "first", nil)
		done <- err
	}()
	<-d.entered

	conv, err := chat.Conversation(context.Background(), testIdentity.UserID)
	require.NoError(t, err)
	assert.True(t, conv.IsLoading())
	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Content)

	_, err = chat.SendAttachments(context.Background(), testIdentity, "second", nil)
	assert.ErrorIs(t, err, ErrSendInProgress)

	close(d.release)
	require.NoError(t, <-done)
	assert.False(t, conv.IsLoading())
	assert.Len(t, conv.Messages(), 2)
}

func TestChatServiceDecodeUploads(t *testing.T) {
	chat := NewChatService(memory.NewStore(), &fakeDispatcher{}, nil, nil, zerolog.Nop())

	atts, err := chat.DecodeUploads([]models.AttachmentUpload{
		{Type: "image", Name: "pixel.png", Data: "data:image/png;base64,iVBORw0KGgo="},
		{Type: "document", Name: "notes.txt", MimeType: "text/plain", Data: "aGVsbG8="},
	})
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "image/png", atts[0].MimeType)
	assert.Equal(t, "iVBORw0KGgo=", atts[0].Data)
	assert.Equal(t, models.AttachmentDocument, atts[1].Kind)

	_, err = chat.DecodeUploads([]models.AttachmentUpload{{Type: "video", Data: "aGk="}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = chat.DecodeUploads([]models.AttachmentUpload{{Type: "image", Data: "***"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChatServiceReturnsWarnings(t *testing.T) {
	chat := NewChatService(memory.NewStore(), &fakeDispatcher{err: errors.New("down")}, nil, nil, zerolog.Nop())

	res, err := chat.Send(context.Background(), testIdentity, "Hello", nil)
	require.NoError(t, err)
	assert.True(t, res.DispatchFailed)
	assert.Equal(t, []models.Notice{SendFailureNotice}, chat.DrainWarnings(testIdentity.UserID))
	assert.Empty(t, chat.DrainWarnings(testIdentity.UserID))
}

func TestOpenConversationRecoversMissingTimestamps(t *testing.T) {
	st := memory.NewStore()
	at := time.Date(2024, 5, 10, 17, 30, 0, 0, time.UTC)
	id := models.NewMessageID(at)
	require.NoError(t, st.PutSlot(context.Background(), testIdentity.UserID, persist.KeyChatMessages,
		[]byte(`[{"id":"`+id+`","content":"Olá","sender":"user"}]`)))

	c := openTestConversation(t, st, &fakeDispatcher{}, nil)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, at.Equal(msgs[0].Timestamp))
}

func TestSendMessageOutlivesCancelledCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"reply":"Hi there"}`))
	}))
	defer srv.Close()

	slots, err := file.NewSlotStore(t.TempDir())
	require.NoError(t, err)
	client := dispatch.NewClient(srv.URL, 5*time.Second, nil, zerolog.Nop())
	c, err := OpenConversation(context.Background(), testIdentity.UserID, slots, client, nil, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := c.SendMessage(ctx, testIdentity, "Hello", nil)
	require.NoError(t, err)
	assert.False(t, res.DispatchFailed)
	assert.Equal(t, "Hi there", res.Reply.Content)

	reloaded, err := OpenConversation(context.Background(), testIdentity.UserID, slots, client, nil, zerolog.Nop())
	require.NoError(t, err)
	msgs := reloaded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi there", msgs[1].Content)
}

func TestConcurrentSendsAdmitOneTurn(t *testing.T) {
	const senders = 8
	d := &blockingDispatcher{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	chat := NewChatService(memory.NewStore(), d, nil, nil, zerolog.Nop())

	results := make(chan error, senders)
	for i := 0; i < senders; i++ {
		go func() {
			_, err := chat.SendAttachments(context.Background(), testIdentity, "hello", nil)
			results <- err
		}()
	}

	for i := 0; i < senders-1; i++ {
		assert.ErrorIs(t, <-results, ErrSendInProgress)
	}
	<-d.entered
	close(d.release)
	require.NoError(t, <-results)

	conv, err := chat.Conversation(context.Background(), testIdentity.UserID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages(), 2)
}
