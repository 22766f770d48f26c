package notify

import (
	"context"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/models"
)

type fakeBot struct {
	sent []string
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	if m, ok := c.(tgbot.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbot.Message{}, nil
}

func newTestTelegram() (*Telegram, *fakeBot) {
	fb := &fakeBot{}
	return &Telegram{bot: fb, chatID: 42, last: make(map[string]models.Decision)}, fb
}

func TestFormatDecision(t *testing.T) {
	d := models.Decision{
		Symbol:     "BTCUSDT",
		Profile:    "classic",
		Timeframe:  "15m",
		Time:       time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC),
		Signal:     models.SignalBuy,
		Price:      100,
		StopLoss:   98,
		TakeProfit: 104,
		Lot:        0.5,
	}
	txt := FormatDecision(d)
	assert.Contains(t, txt, "BUY BTCUSDT [classic/15m]")
	assert.Contains(t, txt, "SL: 98.0000  TP: 104.0000")
	assert.Contains(t, txt, "Лот: 0.50")
	assert.Contains(t, txt, "2024-03-01 12:15")
	assert.NotContains(t, txt, "Перенести")
}

func TestTelegramPublish(t *testing.T) {
	tg, fb := newTestTelegram()
	ctx := context.Background()

	require.NoError(t, tg.Publish(ctx, models.Decision{Symbol: "ETHUSDT", Signal: models.SignalHold, Reason: "no_setup"}))
	assert.Empty(t, fb.sent)

	require.NoError(t, tg.Publish(ctx, models.Decision{Symbol: "BTCUSDT", Signal: models.SignalSell, Price: 10}))
	require.Len(t, fb.sent, 1)
	assert.Contains(t, fb.sent[0], "SELL BTCUSDT")

	status := tg.Status()
	assert.Contains(t, status, "BTCUSDT SELL")
	assert.Contains(t, status, "ETHUSDT HOLD")
}

func TestTelegramStatusEmpty(t *testing.T) {
	tg, _ := newTestTelegram()
	assert.Equal(t, "📭 Решений пока нет", tg.Status())
}

func TestTelegramWithoutChatIsSilent(t *testing.T) {
	tg, fb := newTestTelegram()
	tg.chatID = 0
	require.NoError(t, tg.Publish(context.Background(), models.Decision{Symbol: "X", Signal: models.SignalBuy}))
	assert.Empty(t, fb.sent)
}
