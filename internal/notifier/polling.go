package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Inbound is one text message from a user.
type Inbound struct {
	UserID int64
	ChatID int64
	Text   string
}

// InboundHandler is called for every text message, in receipt order.
type InboundHandler func(msg Inbound)

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		From *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling begins long-polling for messages. Blocks until ctx is cancelled.
func (t *TelegramBot) StartPolling(ctx context.Context, handler InboundHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Telegram polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=30", t.APIBase, offset)
		req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
		if err != nil {
			log.Printf("[ERROR] create polling request: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WARN] polling request failed: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("[WARN] read polling response: %v", err)
			continue
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			log.Printf("[WARN] decode polling response: %v", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			msg := update.Message
			if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
				continue
			}
			handler(Inbound{UserID: msg.From.ID, ChatID: msg.Chat.ID, Text: msg.Text})
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
