// Package mtproto listens to channels through a user account, for channels
// where a bot can't be added.
package mtproto

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

type Kind int

const (
	Created Kind = iota
	Edited
	Deleted
)

// Message is a channel update. Deleted messages carry no text.
type Message struct {
	Kind      Kind
	ChatID    int64
	Channel   string
	MessageID int
	ReplyTo   int
	Text      string
	Time      time.Time
}

type Listener struct {
	id       int
	hash     string
	phone    string
	session  string
	chats    map[int64]bool
	log      func(v ...interface{})
	callback func(Message)
	code     func(context.Context) string
}

// New creates a listener for the given chat ids. Channel ids are the bare
// MTProto ids, without the -100 prefix used by the bot API.
func New(id int, hash, phone, session string, chatIDs []int64, log func(v ...interface{}), callback func(Message), code func(context.Context) string) *Listener {
	chats := make(map[int64]bool)
	for _, c := range chatIDs {
		chats[c] = true
	}
	return &Listener{
		id:       id,
		hash:     hash,
		phone:    phone,
		session:  session,
		chats:    chats,
		log:      log,
		callback: callback,
		code:     code,
	}
}

func (l *Listener) Listen(ctx context.Context) error {
	codePrompt := func(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
		code := l.code(ctx)
		return strings.TrimSpace(code), nil
	}

	// This will setup and perform authentication flow.
	flow := auth.NewFlow(
		auth.CodeOnly(l.phone, auth.CodeAuthenticatorFunc(codePrompt)),
		auth.SendCodeOptions{},
	)

	dispatcher := tg.NewUpdateDispatcher()

	client := telegram.NewClient(l.id, l.hash, telegram.Options{
		SessionStorage: &session.FileStorage{
			Path: l.session,
		},
		UpdateHandler: dispatcher,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("mtproto: couldn't authenticate: %w", err)
		}
		dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
			l.message(Created, e, u.Message)
			return nil
		})
		dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
			l.message(Created, e, u.Message)
			return nil
		})
		dispatcher.OnEditMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditMessage) error {
			l.message(Edited, e, u.Message)
			return nil
		})
		dispatcher.OnEditChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditChannelMessage) error {
			l.message(Edited, e, u.Message)
			return nil
		})
		dispatcher.OnDeleteChannelMessages(func(ctx context.Context, e tg.Entities, u *tg.UpdateDeleteChannelMessages) error {
			if !l.chats[u.ChannelID] {
				return nil
			}
			for _, id := range u.Messages {
				l.callback(Message{
					Kind:      Deleted,
					ChatID:    u.ChannelID,
					Channel:   channelName(e, u.ChannelID),
					MessageID: id,
					Time:      time.Now(),
				})
			}
			return nil
		})
		l.log("Listening for mtproto messages...")
		<-ctx.Done()
		return nil
	})
}

func (l *Listener) message(kind Kind, e tg.Entities, msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		// Outgoing message, not interesting.
		return
	}
	peerID, err := fromPeer(m.PeerID)
	if err != nil {
		l.log(err)
		return
	}
	if !l.chats[peerID] {
		return
	}
	l.callback(toMessage(kind, peerID, channelName(e, peerID), m))
}

func toMessage(kind Kind, chatID int64, channel string, m *tg.Message) Message {
	msg := Message{
		Kind:      kind,
		ChatID:    chatID,
		Channel:   channel,
		MessageID: m.ID,
		Text:      m.Message,
		Time:      time.Unix(int64(m.Date), 0),
	}
	if reply, ok := m.GetReplyTo(); ok {
		msg.ReplyTo = reply.ReplyToMsgID
	}
	return msg
}

func channelName(e tg.Entities, id int64) string {
	if c, ok := e.Channels[id]; ok {
		if c.Username != "" {
			return c.Username
		}
		return c.Title
	}
	if c, ok := e.Chats[id]; ok {
		return c.Title
	}
	return fmt.Sprintf("%d", id)
}

func fromPeer(p tg.PeerClass) (id int64, err error) {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID, nil
	case *tg.PeerChannel:
		return v.ChannelID, nil
	case *tg.PeerChat:
		return v.ChatID, nil
	}
	return 0, fmt.Errorf("mtproto: invalid peer: %T", p)
}
