package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tunebot/internal/pipeline"
	"github.com/desertthunder/tunebot/internal/shared"
	tu "github.com/desertthunder/tunebot/internal/testing"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type apiCall struct {
	method string
	values map[string]string
	files  []string
}

// fakeAPI emulates the Bot API endpoints used by the bot.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	fail  map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	call := apiCall{method: method, values: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				call.values[k] = v[0]
			}
			for k := range r.MultipartForm.File {
				call.files = append(call.files, k)
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			call.values[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	failing := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failing:
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": "Bad Request"})
	case method == "getMe":
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"id": 1, "is_bot": true, "first_name": "tunebot", "username": "tunebot_test"}})
	case method == "answerCallbackQuery":
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	default:
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 7, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}}})
	}
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.method != "getMe" {
			out = append(out, c.method)
		}
	}
	return out
}

func (f *fakeAPI) last(method string) apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	return apiCall{}
}

type fakeHandler struct {
	mu       sync.Mutex
	queries  []string
	payloads []string
	users    []int64
	fn       func(ch pipeline.Channel) error
}

func (f *fakeHandler) HandleQuery(ctx context.Context, user int64, text string, ch pipeline.Channel) error {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.users = append(f.users, user)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ch)
	}
	return nil
}

func (f *fakeHandler) HandleSelection(ctx context.Context, user int64, payload string, ch pipeline.Channel) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.users = append(f.users, user)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ch)
	}
	return nil
}

func newTestBot(t *testing.T, h Handler) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{fail: map[string]bool{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	bot, err := newBot(shared.TelegramConfig{Token: "test-token"}, srv.URL+"/bot%s/%s", srv.Client(), h, nil)
	if err != nil {
		t.Fatalf("newBot failed: %v", err)
	}
	return bot, api
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 100},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 100},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 42}},
		Data:    data,
	}}
}

func TestNewBot(t *testing.T) {
	t.Run("authenticates", func(t *testing.T) {
		bot, _ := newTestBot(t, &fakeHandler{})
		if bot.Username() != "tunebot_test" {
			t.Errorf("expected username tunebot_test, got %q", bot.Username())
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := newBot(shared.TelegramConfig{}, tgbotapi.APIEndpoint, http.DefaultClient, &fakeHandler{}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		api := &fakeAPI{fail: map[string]bool{"getMe": true}}
		srv := httptest.NewServer(api)
		defer srv.Close()

		_, err := newBot(shared.TelegramConfig{Token: "bad"}, srv.URL+"/bot%s/%s", srv.Client(), &fakeHandler{}, nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestHandle(t *testing.T) {
	t.Run("start command", func(t *testing.T) {
		h := &fakeHandler{}
		bot, api := newTestBot(t, h)
		bot.Handle(context.Background(), textUpdate("/start"))

		if got := api.last("sendMessage").values["text"]; got != WelcomeText {
			t.Errorf("expected welcome text, got %q", got)
		}
		if len(h.queries) != 0 {
			t.Error("commands must not reach the pipeline")
		}
	})

	t.Run("help command", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		bot.Handle(context.Background(), textUpdate("/help"))

		if got := api.last("sendMessage").values["text"]; got != HelpText {
			t.Errorf("expected help text, got %q", got)
		}
	})

	t.Run("text starts a query", func(t *testing.T) {
		h := &fakeHandler{}
		bot, _ := newTestBot(t, h)
		bot.Handle(context.Background(), textUpdate("bohemian rhapsody"))

		if len(h.queries) != 1 || h.queries[0] != "bohemian rhapsody" {
			t.Fatalf("expected one query, got %v", h.queries)
		}
		if h.users[0] != 100 {
			t.Errorf("expected user 100, got %d", h.users[0])
		}
	})

	t.Run("non-text message is ignored", func(t *testing.T) {
		h := &fakeHandler{}
		bot, api := newTestBot(t, h)
		bot.Handle(context.Background(), textUpdate(""))

		if len(h.queries) != 0 || len(api.methods()) != 0 {
			t.Error("expected no interaction for an empty message")
		}
	})

	t.Run("callback is answered and selects", func(t *testing.T) {
		h := &fakeHandler{fn: func(ch pipeline.Channel) error {
			return ch.Notify(context.Background(), "Downloading Song a...")
		}}
		bot, api := newTestBot(t, h)
		bot.Handle(context.Background(), callbackUpdate("tok:1"))

		if len(h.payloads) != 1 || h.payloads[0] != "tok:1" {
			t.Fatalf("expected payload tok:1, got %v", h.payloads)
		}

		methods := api.methods()
		if len(methods) != 2 || methods[0] != "answerCallbackQuery" || methods[1] != "editMessageText" {
			t.Fatalf("expected answer then edit, got %v", methods)
		}
		edit := api.last("editMessageText")
		if edit.values["message_id"] != "9" || edit.values["text"] != "Downloading Song a..." {
			t.Errorf("unexpected edit %v", edit.values)
		}
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		h := &fakeHandler{fn: func(pipeline.Channel) error { panic("boom") }}
		bot, _ := newTestBot(t, h)
		bot.Handle(context.Background(), textUpdate("anything"))
	})
}

func TestChannel(t *testing.T) {
	t.Run("presents keyboard", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		ch := NewChannel(bot.api, 42, 0)

		err := ch.PresentChoices(context.Background(), pipeline.MsgChoose, []pipeline.Choice{
			{Label: "Song a - Uploader a (3:00)", Payload: "tok:0"},
			{Label: "Song b - Uploader b (3:01)", Payload: "tok:1"},
		})
		if err != nil {
			t.Fatalf("PresentChoices failed: %v", err)
		}

		call := api.last("sendMessage")
		var markup tgbotapi.InlineKeyboardMarkup
		if err := json.Unmarshal([]byte(call.values["reply_markup"]), &markup); err != nil {
			t.Fatalf("failed to decode reply_markup: %v", err)
		}
		if len(markup.InlineKeyboard) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(markup.InlineKeyboard))
		}
		if data := markup.InlineKeyboard[1][0].CallbackData; data == nil || *data != "tok:1" {
			t.Errorf("expected callback data tok:1, got %v", data)
		}
	})

	t.Run("edit happens once", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		ch := NewChannel(bot.api, 42, 9)
		ctx := context.Background()

		ch.Notify(ctx, "first")
		ch.Notify(ctx, "second")

		methods := api.methods()
		if len(methods) != 2 || methods[0] != "editMessageText" || methods[1] != "sendMessage" {
			t.Errorf("expected edit then send, got %v", methods)
		}
	})

	t.Run("busy reply keeps keyboard", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		ch := NewChannel(bot.api, 42, 9)

		ch.Notify(context.Background(), pipeline.MsgBusy)
		if methods := api.methods(); len(methods) != 1 || methods[0] != "sendMessage" {
			t.Errorf("expected a new message, got %v", methods)
		}
	})

	t.Run("failed edit falls back to message", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		api.fail["editMessageText"] = true
		ch := NewChannel(bot.api, 42, 9)

		if err := ch.Notify(context.Background(), "status"); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
		if got := api.last("sendMessage").values["text"]; got != "status" {
			t.Errorf("expected fallback message, got %q", got)
		}
	})

	t.Run("sends audio with tags", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		path := tu.WriteFile(t, t.TempDir(), "track.mp3", 1024)
		ch := NewChannel(bot.api, 42, 0)

		err := ch.SendAudio(context.Background(), pipeline.Audio{Path: path, Title: "Song", Performer: "Artist", Duration: 181})
		if err != nil {
			t.Fatalf("SendAudio failed: %v", err)
		}

		call := api.last("sendAudio")
		if call.values["title"] != "Song" || call.values["performer"] != "Artist" || call.values["duration"] != "181" {
			t.Errorf("unexpected audio fields %v", call.values)
		}
		if len(call.files) != 1 || call.files[0] != "audio" {
			t.Errorf("expected audio upload, got %v", call.files)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		bot, api := newTestBot(t, &fakeHandler{})
		ch := NewChannel(bot.api, 42, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := ch.Notify(ctx, "x"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(api.methods()) != 0 {
			t.Error("expected no API calls")
		}
	})
}
