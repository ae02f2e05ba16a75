package userclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/celestix/gotgproto/storage"
	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
)

// HistoryPage is one messages.getHistory response with the entities it references.
type HistoryPage struct {
	Messages []tg.MessageClass
	Users    []tg.UserClass
	Chats    []tg.ChatClass
}

// ResolveChannel turns a public handle into an input peer. Results are cached
// per lower-cased handle for the life of the session.
func (s *Session) ResolveChannel(ctx context.Context, handle string) (tg.InputPeerClass, error) {
	key := strings.ToLower(strings.TrimPrefix(handle, "@"))
	if p, ok := s.peers.Get(key); ok {
		return p, nil
	}
	uc, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := peer.Resolve(peer.DefaultResolver(uc.TClient.API()), key)(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", handle)
	}
	switch p := resolved.(type) {
	case *tg.InputPeerChannel:
		uc.TClient.PeerStorage.AddPeer(p.ChannelID, p.AccessHash, storage.TypeChannel, key)
	case *tg.InputPeerUser:
		uc.TClient.PeerStorage.AddPeer(p.UserID, p.AccessHash, storage.TypeUser, key)
	}
	if err := s.peers.Set(key, resolved); err != nil {
		log.FromContext(ctx).Warn("Failed to cache resolved peer", "handle", key, "error", err)
	}
	return resolved, nil
}

// GetHistory fetches up to limit messages older than offsetID, newest first.
// offsetID 0 starts from the latest message.
func (s *Session) GetHistory(ctx context.Context, p tg.InputPeerClass, offsetID, limit int) (*HistoryPage, error) {
	uc, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	res, err := uc.TClient.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     p,
		OffsetID: offsetID,
		Limit:    limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get history")
	}
	switch m := res.(type) {
	case *tg.MessagesMessages:
		return &HistoryPage{Messages: m.Messages, Users: m.Users, Chats: m.Chats}, nil
	case *tg.MessagesMessagesSlice:
		return &HistoryPage{Messages: m.Messages, Users: m.Users, Chats: m.Chats}, nil
	case *tg.MessagesChannelMessages:
		return &HistoryPage{Messages: m.Messages, Users: m.Users, Chats: m.Chats}, nil
	case *tg.MessagesMessagesNotModified:
		return &HistoryPage{}, nil
	default:
		return nil, fmt.Errorf("unexpected history type %T", res)
	}
}
