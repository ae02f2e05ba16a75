package tgutil

import (
	"time"

	"github.com/gotd/td/tg"
	"github.com/krau/tgkw/types"
)

// Entities indexes the users and chats that came with one history page.
type Entities struct {
	Users map[int64]*tg.User
	Chats map[int64]string
}

func NewEntities(users []tg.UserClass, chats []tg.ChatClass) Entities {
	ents := Entities{
		Users: make(map[int64]*tg.User, len(users)),
		Chats: make(map[int64]string, len(chats)),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			ents.Users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			ents.Chats[chat.ID] = chat.Title
		case *tg.ChatForbidden:
			ents.Chats[chat.ID] = chat.Title
		case *tg.Channel:
			ents.Chats[chat.ID] = chat.Title
		case *tg.ChannelForbidden:
			ents.Chats[chat.ID] = chat.Title
		}
	}
	return ents
}

// SenderPeer returns the peer that authored the message: from_id when set,
// the channel itself for channel posts, nil otherwise.
func SenderPeer(msg *tg.Message) tg.PeerClass {
	if from, ok := msg.GetFromID(); ok && from != nil {
		return from
	}
	if msg.Post {
		return msg.PeerID
	}
	return nil
}

func SenderName(msg *tg.Message, ents Entities) string {
	switch p := SenderPeer(msg).(type) {
	case *tg.PeerUser:
		user, ok := ents.Users[p.UserID]
		if !ok {
			return types.UnknownSender
		}
		name := user.FirstName
		if name == "" {
			name = types.UnknownSender
		}
		if user.LastName != "" {
			name += " " + user.LastName
		}
		return name
	case *tg.PeerChannel:
		if title, ok := ents.Chats[p.ChannelID]; ok {
			return title
		}
	case *tg.PeerChat:
		if title, ok := ents.Chats[p.ChatID]; ok {
			return title
		}
	}
	return types.UnknownSender
}

// FormatDate renders a unix timestamp in UTC, zero means unknown.
func FormatDate(unix int) string {
	if unix == 0 {
		return types.UnknownDate
	}
	return time.Unix(int64(unix), 0).UTC().Format(types.DateLayout)
}

func GetPeerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerChannel:
		return p.ChannelID
	default:
		return 0
	}
}
