package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"SplitBot/internal/model"
)

// TelegramBot talks to the Telegram Bot API.
type TelegramBot struct {
	APIBase string // https://api.telegram.org/bot<token>
	Client  *http.Client
}

// NewTelegramBot creates a bot client with optional proxy support.
func NewTelegramBot(botToken, proxyURL string) *TelegramBot {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramBot{
		APIBase: fmt.Sprintf("https://api.telegram.org/bot%s", botToken),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard,omitempty"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
	RemoveKeyboard bool               `json:"remove_keyboard,omitempty"`
}

type sendMessagePayload struct {
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text"`
	ReplyMarkup replyMarkup `json:"reply_markup"`
}

// keyboard lays choices out two per row.
func keyboard(choices []string) replyMarkup {
	if len(choices) == 0 {
		return replyMarkup{RemoveKeyboard: true}
	}
	var rows [][]keyboardButton
	for i := 0; i < len(choices); i += 2 {
		row := []keyboardButton{{Text: choices[i]}}
		if i+1 < len(choices) {
			row = append(row, keyboardButton{Text: choices[i+1]})
		}
		rows = append(rows, row)
	}
	return replyMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// Send delivers a reply to the chat, rendering its choices as a reply keyboard.
func (t *TelegramBot) Send(ctx context.Context, chatID int64, reply model.Reply) error {
	body, err := json.Marshal(sendMessagePayload{
		ChatID:      chatID,
		Text:        reply.Text,
		ReplyMarkup: keyboard(reply.Choices),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.APIBase+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a reply with exponential backoff retry.
func (t *TelegramBot) SendWithRetry(ctx context.Context, chatID int64, reply model.Reply, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, chatID, reply); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
