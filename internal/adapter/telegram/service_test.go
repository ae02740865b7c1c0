package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
)

func closedTrade() *domain.Trade {
	end := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	return &domain.Trade{
		ID:            "t1",
		Indicator:     "eci_longA",
		Type:          domain.SideBuy,
		Symbol:        "BTCUSDT",
		Price:         100,
		Quantity:      12.5,
		Leverage:      125,
		StartTime:     end.Add(-time.Hour),
		EndTime:       &end,
		ExitPrice:     domain.Float(101),
		Profit:        domain.Float(11.5),
		Fee:           domain.Float(1),
		PercentProfit: domain.Float(115),
		Duration:      domain.Seconds(3600),
	}
}

func TestDisabledServiceSendsNothing(t *testing.T) {
	s := NewNotificationService("", "")
	assert.NoError(t, s.TradeOpened(closedTrade()))
	assert.NoError(t, s.TradeClosed(closedTrade(), domain.ClosedByTP))
}

func TestTradeClosedPostsMarkdown(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewNotificationService("token", "42")
	s.apiBase = srv.URL

	require.NoError(t, s.TradeClosed(closedTrade(), domain.ClosedByTP))
	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Contains(t, got.Text, "CLOSED buy BTCUSDT")
	assert.Contains(t, got.Text, "$11.50")
	assert.Contains(t, got.Text, "1h0m0s")
}

func TestTelegramErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	s := NewNotificationService("token", "42")
	s.apiBase = srv.URL

	err := s.TradeOpened(closedTrade())
	assert.ErrorContains(t, err, "status 400")
}
