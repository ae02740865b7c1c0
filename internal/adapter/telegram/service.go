package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradeledger/internal/domain"
	"tradeledger/internal/utils"
)

const defaultAPIBase = "https://api.telegram.org"

// NotificationService sends trade notifications to a Telegram chat.
// It is a no-op when the bot token or chat id is missing.
type NotificationService struct {
	botToken   string
	chatID     string
	enabled    bool
	apiBase    string
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func NewNotificationService(botToken, chatID string) *NotificationService {
	return &NotificationService{
		botToken: botToken,
		chatID:   chatID,
		enabled:  botToken != "" && chatID != "",
		apiBase:  defaultAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TradeOpened implements domain.Notifier
func (s *NotificationService) TradeOpened(trade *domain.Trade) error {
	if !s.enabled {
		return nil
	}

	sideEmoji := "🟢"
	if !trade.IsLong() {
		sideEmoji = "🔴"
	}
	mode := "PAPER"
	if trade.RealTrade {
		mode = "REAL"
	}

	message := fmt.Sprintf(
		"%s *OPEN %s %s* (%s)\n"+
			"━━━━━━━━━━━━━━━━━\n"+
			"📒 Account: `%s`\n"+
			"📊 Entry: `$%.4f`\n"+
			"📦 Qty: `%.4f` x%.0f\n"+
			"💰 Margin: `$%.2f`\n"+
			"🕒 Time: `%s`",
		sideEmoji,
		trade.Type,
		trade.Symbol,
		mode,
		trade.Indicator,
		trade.Price,
		trade.Quantity,
		trade.Leverage,
		trade.Margin,
		utils.FormatLocal(trade.StartTime),
	)

	return s.sendMessage(message)
}

// TradeClosed implements domain.Notifier
func (s *NotificationService) TradeClosed(trade *domain.Trade, reason string) error {
	if !s.enabled {
		return nil
	}

	statusEmoji := "✅"
	if trade.ProfitValue() <= 0 {
		statusEmoji = "❌"
	}
	exit := 0.0
	if trade.ExitPrice != nil {
		exit = *trade.ExitPrice
	}
	closedAt := time.Now()
	if trade.EndTime != nil {
		closedAt = *trade.EndTime
	}

	message := fmt.Sprintf(
		"%s *CLOSED %s %s* [%s]\n"+
			"━━━━━━━━━━━━━━━━━\n"+
			"📒 Account: `%s`\n"+
			"🔵 Entry: `$%.4f`\n"+
			"🏁 Exit: `$%.4f`\n"+
			"💵 PnL: `$%.2f` (%.2f%%)\n"+
			"🧾 Fee: `$%.4f`\n"+
			"⏱ Duration: `%s`\n"+
			"🕒 Time: `%s`",
		statusEmoji,
		trade.Type,
		trade.Symbol,
		reason,
		trade.Indicator,
		trade.Price,
		exit,
		trade.ProfitValue(),
		trade.PercentProfitValue(),
		trade.FeeValue(),
		utils.FormatDuration(trade.Duration.Seconds),
		utils.FormatLocal(closedAt),
	)

	return s.sendMessage(message)
}

// sendMessage sends a message to Telegram using the Bot API
func (s *NotificationService) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	payload := telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	resp, err := s.httpClient.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
