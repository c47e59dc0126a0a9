package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Message is a text received from a signal chat.
type Message struct {
	Edited    bool
	ChatID    int64
	Channel   string
	MessageID int
	// ReplyTo is the id of the parent message, 0 when it isn't a reply.
	ReplyTo int
	Text    string
	Time    time.Time
}

type Bot struct {
	bot      *tb.Bot
	chat     *tb.Chat
	boot     time.Time
	log      *zap.SugaredLogger
	messages chan string
}

func New(token string, chatID int64, log *zap.SugaredLogger) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	chat, err := b.ChatByID(strconv.FormatInt(chatID, 10))
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create chat %d: %w", chatID, err)
	}
	bot := &Bot{
		bot:      b,
		chat:     chat,
		boot:     time.Now(),
		log:      log,
		messages: make(chan string, 100),
	}
	return bot, nil
}

// HandleSignals reports texts, edits and channel posts of the given chats.
// Messages sent before the bot started are ignored.
func (b *Bot) HandleSignals(chatIDs []int64, handler func(Message)) {
	allowed := make(map[int64]bool)
	for _, id := range chatIDs {
		allowed[id] = true
	}
	handle := func(edited bool) func(*tb.Message) {
		return func(m *tb.Message) {
			if !allowed[m.Chat.ID] {
				return
			}
			if !edited && m.Time().Before(b.boot) {
				return
			}
			handler(toMessage(m, edited))
		}
	}
	b.bot.Handle(tb.OnText, handle(false))
	b.bot.Handle(tb.OnChannelPost, handle(false))
	b.bot.Handle(tb.OnEdited, handle(true))
	b.bot.Handle(tb.OnEditedChannelPost, handle(true))
}

func toMessage(m *tb.Message, edited bool) Message {
	msg := Message{
		Edited:    edited,
		ChatID:    m.Chat.ID,
		Channel:   chatName(m.Chat),
		MessageID: m.ID,
		Text:      m.Text,
		Time:      m.Time(),
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.IsReply() {
		msg.ReplyTo = m.ReplyTo.ID
	}
	return msg
}

func chatName(c *tb.Chat) string {
	if c.Username != "" {
		return c.Username
	}
	if c.Title != "" {
		return c.Title
	}
	return strconv.FormatInt(c.ID, 10)
}

// HandleCommand registers a control command. Only the control chat may use
// it.
func (b *Bot) HandleCommand(command string, handler func(string)) {
	b.bot.Handle(fmt.Sprintf("/%s", command), func(m *tb.Message) {
		if m.Chat.ID != b.chat.ID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		handler(m.Payload)
	})
}

func (b *Bot) Run(ctx context.Context) error {
	go b.bot.Start()
	defer b.bot.Stop()
	defer b.bot.Send(b.chat, "🛑 bot stopping")
	var msg string
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg = <-b.messages:
		}
		opts := tb.ModeDefault
		if strings.Contains(msg, "`") {
			opts = tb.ModeMarkdown
		}
		if _, err := b.bot.Send(b.chat, msg, opts); err != nil {
			b.log.Error(err)
		}
		select {
		case <-ctx.Done():
			return nil
		// Wait to avoid rate limit errors
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Print logs the message and queues it for the control chat.
func (b *Bot) Print(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	b.log.Info(strings.TrimSpace(msg))
	select {
	case b.messages <- msg:
	default:
		b.log.Warn("telegram: control chat queue full, message dropped")
	}
}
