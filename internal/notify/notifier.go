package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"backtester/internal/models"
	"backtester/pkg/logger"
)

// sender: то, что нужно от бота; в тестах подменяется.
type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram: алерты по BUY/SELL и ответ на /status последними решениями.
type Telegram struct {
	bot    sender
	api    *tgbot.BotAPI
	chatID int64

	mu   sync.Mutex
	last map[string]models.Decision
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		api:    b,
		chatID: chatID,
		last:   make(map[string]models.Decision),
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(msg string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg))
	return err
}

// Publish запоминает решение; в чат уходят только BUY/SELL.
func (t *Telegram) Publish(_ context.Context, d models.Decision) error {
	t.mu.Lock()
	t.last[d.Symbol] = d
	t.mu.Unlock()

	if !d.Actionable() && d.SuggestedStop == 0 {
		return nil
	}
	return t.Send(FormatDecision(d))
}

func (t *Telegram) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.last) == 0 {
		return "📭 Решений пока нет"
	}
	syms := make([]string, 0, len(t.last))
	for s := range t.last {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	var b strings.Builder
	b.WriteString("📊 Последние решения:\n")
	for _, s := range syms {
		d := t.last[s]
		fmt.Fprintf(&b, "- %s %s @ %.4f (%s) %s\n", d.Symbol, d.Signal, d.Price, d.Reason, d.Time.UTC().Format("01-02 15:04"))
	}
	return b.String()
}

// Start: long-polling команд из своего чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.api == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.api.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status":
					if err := t.Send(t.Status()); err != nil {
						logger.Warn("[TG] status reply: %v", err)
					}
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t != nil && t.api != nil {
		t.api.StopReceivingUpdates()
	}
}

// FormatDecision: текст алерта.
func FormatDecision(d models.Decision) string {
	var b strings.Builder
	emoji := "⏸"
	switch d.Signal {
	case models.SignalBuy:
		emoji = "🟢"
	case models.SignalSell:
		emoji = "🔴"
	}
	fmt.Fprintf(&b, "%s %s %s [%s/%s]\n", emoji, d.Signal, d.Symbol, d.Profile, d.Timeframe)
	fmt.Fprintf(&b, "Цена: %.4f\n", d.Price)
	if d.Actionable() {
		fmt.Fprintf(&b, "SL: %.4f  TP: %.4f\n", d.StopLoss, d.TakeProfit)
		fmt.Fprintf(&b, "Лот: %.2f\n", d.Lot)
	}
	if d.SuggestedStop != 0 {
		fmt.Fprintf(&b, "Перенести SL → %.4f\n", d.SuggestedStop)
	}
	fmt.Fprintf(&b, "Бар: %s", d.Time.UTC().Format("2006-01-02 15:04"))
	return b.String()
}

// Stdout: всё пишет в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Publish(_ context.Context, d models.Decision) error {
	if d.Actionable() {
		logger.Info("[LIVE] %s %s @ %.4f sl=%.4f tp=%.4f lot=%.2f",
			d.Symbol, d.Signal, d.Price, d.StopLoss, d.TakeProfit, d.Lot)
		return nil
	}
	logger.Info("[LIVE] %s HOLD (%s) @ %.4f", d.Symbol, d.Reason, d.Price)
	return nil
}
