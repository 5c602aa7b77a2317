package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"SplitBot/internal/model"
)

func TestSend_RendersReplyKeyboard(t *testing.T) {
	var got sendMessagePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	bot := &TelegramBot{APIBase: srv.URL, Client: srv.Client()}
	err := bot.Send(context.Background(), 77, model.Reply{Text: "Какой курс?", Choices: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.ChatID != 77 || got.Text != "Какой курс?" {
		t.Errorf("unexpected payload: %+v", got)
	}
	kb := got.ReplyMarkup.Keyboard
	if len(kb) != 2 || len(kb[0]) != 2 || len(kb[1]) != 1 || kb[1][0].Text != "c" {
		t.Errorf("expected 2+1 keyboard layout, got %+v", kb)
	}
}

func TestSend_RemovesKeyboardWithoutChoices(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	bot := &TelegramBot{APIBase: srv.URL, Client: srv.Client()}
	if err := bot.Send(context.Background(), 1, model.Reply{Text: "done"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(raw["reply_markup"]) != `{"remove_keyboard":true}` {
		t.Errorf("expected keyboard removal, got %s", raw["reply_markup"])
	}
}

func TestSend_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer srv.Close()

	bot := &TelegramBot{APIBase: srv.URL, Client: srv.Client()}
	if err := bot.Send(context.Background(), 1, model.Reply{Text: "x"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestStartPolling_DeliversMessagesInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			_, _ = io.WriteString(w, `{"ok":true,"result":[
				{"update_id":10,"message":{"text":"/start","from":{"id":5},"chat":{"id":500}}},
				{"update_id":11,"message":{"text":"   ","from":{"id":5},"chat":{"id":500}}},
				{"update_id":12,"edited_message":{"text":"ignored"}},
				{"update_id":13,"message":{"text":"1000","from":{"id":5},"chat":{"id":500}}}]}`)
			return
		}
		if got := r.URL.Query().Get("offset"); got != "14" {
			t.Errorf("expected offset 14 on next poll, got %s", got)
		}
		cancel()
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
	}))
	defer srv.Close()

	bot := &TelegramBot{APIBase: srv.URL, Client: srv.Client()}

	var got []Inbound
	bot.StartPolling(ctx, func(msg Inbound) {
		got = append(got, msg)
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Text != "/start" || got[1].Text != "1000" || got[1].UserID != 5 || got[1].ChatID != 500 {
		t.Errorf("unexpected messages: %+v", got)
	}
}
