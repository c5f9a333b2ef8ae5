package webhook

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/relay"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

type fakeResponder struct {
	inputs []relay.ChatInput
	reply  string
	err    error
}

func (f *fakeResponder) Chat(ctx context.Context, input relay.ChatInput) (relay.ChatResult, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return relay.ChatResult{}, f.err
	}
	return relay.ChatResult{Text: f.reply}, nil
}

type sentText struct {
	to   string
	body string
}

type fakeMessenger struct {
	texts       []sentText
	reactions   []string
	readIDs     []string
	mediaBytes  []byte
	mediaInfo   whatsapp.MediaInfo
	mediaErr    error
	sendErr     error
	markReadErr error
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) (whatsapp.SendResult, error) {
	if f.sendErr != nil {
		return whatsapp.SendResult{}, f.sendErr
	}
	f.texts = append(f.texts, sentText{to: to, body: body})
	return whatsapp.SendResult{MessageID: "wamid.out"}, nil
}

func (f *fakeMessenger) SendReaction(ctx context.Context, to, messageID, emoji string) (whatsapp.SendResult, error) {
	f.reactions = append(f.reactions, messageID)
	return whatsapp.SendResult{}, nil
}

func (f *fakeMessenger) MarkRead(ctx context.Context, messageID string) error {
	f.readIDs = append(f.readIDs, messageID)
	return f.markReadErr
}

func (f *fakeMessenger) DownloadMedia(ctx context.Context, mediaID string) ([]byte, whatsapp.MediaInfo, error) {
	if f.mediaErr != nil {
		return nil, whatsapp.MediaInfo{}, f.mediaErr
	}
	return f.mediaBytes, f.mediaInfo, nil
}

type fakeSecrets struct {
	verifyToken string
	appSecret   string
}

func (f *fakeSecrets) VerifyToken(ctx context.Context) string { return f.verifyToken }
func (f *fakeSecrets) AppSecret(ctx context.Context) string   { return f.appSecret }

func testHandler(responder *fakeResponder, messenger *fakeMessenger, secrets *fakeSecrets) *Handler {
	return NewHandler(slog.Default(), responder, messenger, secrets, nil)
}

func textMessage(id, from, body string) Message {
	return Message{ID: id, From: from, Type: "text", Text: &Text{Body: body}}
}

func eventWith(messages ...Message) Event {
	return Event{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			ID: "entry1",
			Changes: []Change{{
				Field: "messages",
				Value: Value{MessagingProduct: "whatsapp", Messages: messages},
			}},
		}},
	}
}

func TestHandleVerifyAcceptsMatchingToken(t *testing.T) {
	t.Parallel()

	h := testHandler(&fakeResponder{}, &fakeMessenger{}, &fakeSecrets{verifyToken: "secret-token"})
	e := echo.New()
	h.Register(e)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "12345" {
		t.Errorf("challenge not echoed: %q", rec.Body.String())
	}
	if h.handshake.Phase() != PhaseAccepting {
		t.Errorf("phase = %v, want accepting", h.handshake.Phase())
	}
}

func TestHandleVerifyRefusesBadToken(t *testing.T) {
	t.Parallel()

	h := testHandler(&fakeResponder{}, &fakeMessenger{}, &fakeSecrets{verifyToken: "secret-token"})
	e := echo.New()
	h.Register(e)

	cases := []string{
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1",
		"/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=1",
		"/webhook",
	}
	for _, url := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", url, rec.Code)
		}
	}
	if h.handshake.Phase() != PhaseAwaitingVerification {
		t.Errorf("phase moved on refused handshake")
	}
}

func TestHandleEventAlwaysAcks(t *testing.T) {
	t.Parallel()

	h := testHandler(&fakeResponder{reply: "ok"}, &fakeMessenger{}, &fakeSecrets{})
	e := echo.New()
	h.Register(e)

	for _, body := range []string{
		`{"object":"whatsapp_business_account","entry":[]}`,
		`not json at all`,
		``,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("body %q: status = %d, want 200", body, rec.Code)
		}
	}
}

func TestHandleEventRefusesBadSignature(t *testing.T) {
	t.Parallel()

	h := testHandler(&fakeResponder{}, &fakeMessenger{}, &fakeSecrets{appSecret: "app-secret"})
	e := echo.New()
	h.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestProcessTextMessage(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{reply: "here is your answer"}
	messenger := &fakeMessenger{}
	h := testHandler(responder, messenger, &fakeSecrets{})

	h.Process(context.Background(), eventWith(textMessage("wamid.1", "628111", "what are your opening hours?")))

	if len(responder.inputs) != 1 {
		t.Fatalf("relay calls = %d", len(responder.inputs))
	}
	if responder.inputs[0].Query != "what are your opening hours?" {
		t.Errorf("query = %q", responder.inputs[0].Query)
	}
	if responder.inputs[0].UserID != "628111" {
		t.Errorf("user id = %q", responder.inputs[0].UserID)
	}
	if len(messenger.readIDs) != 1 || messenger.readIDs[0] != "wamid.1" {
		t.Errorf("mark read: %v", messenger.readIDs)
	}
	if len(messenger.texts) != 1 || messenger.texts[0].body != "here is your answer" {
		t.Errorf("reply: %+v", messenger.texts)
	}
	// Text messages get no reaction ack.
	if len(messenger.reactions) != 0 {
		t.Errorf("unexpected reactions: %v", messenger.reactions)
	}
}

func TestProcessImageMessage(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{reply: "nice picture"}
	messenger := &fakeMessenger{
		mediaBytes: []byte{0xff, 0xd8},
		mediaInfo:  whatsapp.MediaInfo{MIMEType: "image/jpeg"},
	}
	h := testHandler(responder, messenger, &fakeSecrets{})

	msg := Message{
		ID: "wamid.2", From: "628111", Type: "image",
		Image: &Media{ID: "media9", MIMEType: "image/jpeg", Caption: "what is this?"},
	}
	h.Process(context.Background(), eventWith(msg))

	if len(messenger.reactions) != 1 {
		t.Errorf("image not acked with reaction: %v", messenger.reactions)
	}
	if len(responder.inputs) != 1 {
		t.Fatalf("relay calls = %d", len(responder.inputs))
	}
	input := responder.inputs[0]
	if input.Media == nil || input.Media.MIMEType != "image/jpeg" {
		t.Fatalf("media missing: %+v", input)
	}
	if input.Media.Data != base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}) {
		t.Errorf("media not base64 encoded: %q", input.Media.Data)
	}
	if input.Query != "what is this?" {
		t.Errorf("caption lost: %q", input.Query)
	}
}

func TestProcessFailureSendsApologyAndContinues(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{err: errors.New("upstream exploded")}
	messenger := &fakeMessenger{}
	h := testHandler(responder, messenger, &fakeSecrets{})

	h.Process(context.Background(), eventWith(
		textMessage("wamid.1", "628111", "first"),
		textMessage("wamid.2", "628222", "second"),
	))

	// Both messages were attempted despite the first failing.
	if len(responder.inputs) != 2 {
		t.Fatalf("relay calls = %d, want 2", len(responder.inputs))
	}
	if len(messenger.texts) != 2 {
		t.Fatalf("texts = %d, want 2 apologies", len(messenger.texts))
	}
	for _, sent := range messenger.texts {
		if sent.body != apologyText {
			t.Errorf("expected apology, got %q", sent.body)
		}
	}
}

func TestProcessMediaDownloadFailureApologizes(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{}
	messenger := &fakeMessenger{mediaErr: whatsapp.ErrMediaTooLarge}
	h := testHandler(responder, messenger, &fakeSecrets{})

	msg := Message{ID: "wamid.3", From: "628111", Type: "audio", Audio: &Media{ID: "media1"}}
	h.Process(context.Background(), eventWith(msg))

	if len(responder.inputs) != 0 {
		t.Errorf("relay called despite download failure")
	}
	if len(messenger.texts) != 1 || messenger.texts[0].body != apologyText {
		t.Errorf("apology missing: %+v", messenger.texts)
	}
}

func TestProcessUnsupportedTypeApologizes(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{}
	messenger := &fakeMessenger{}
	h := testHandler(responder, messenger, &fakeSecrets{})

	h.Process(context.Background(), eventWith(Message{ID: "wamid.4", From: "628111", Type: "sticker"}))

	if len(messenger.texts) != 1 || messenger.texts[0].body != apologyText {
		t.Errorf("apology missing: %+v", messenger.texts)
	}
}

func TestProcessIgnoresNonMessageChanges(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{}
	h := testHandler(responder, &fakeMessenger{}, &fakeSecrets{})

	event := Event{Entry: []Entry{{Changes: []Change{{Field: "statuses"}}}}}
	h.Process(context.Background(), event)

	if len(responder.inputs) != 0 {
		t.Errorf("status change reached the relay")
	}
}
