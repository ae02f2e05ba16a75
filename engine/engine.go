package engine

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/krau/tgkw/types"
	"github.com/krau/tgkw/userclient"
)

// ErrSearchFailed wraps any failure while talking to Telegram during a search.
var ErrSearchFailed = errors.New("Error accessing Telegram")

type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest) ([]types.SearchResult, error)
}

// HistorySource is the part of a user session the scanner needs.
type HistorySource interface {
	ResolveChannel(ctx context.Context, handle string) (tg.InputPeerClass, error)
	GetHistory(ctx context.Context, peer tg.InputPeerClass, offsetID, limit int) (*userclient.HistoryPage, error)
}

var (
	_ Searcher      = (*Scanner)(nil)
	_ HistorySource = (*userclient.Session)(nil)
)

// ProgressFunc is called after every page with the number of messages
// examined so far, the overall budget and the number of matches.
type ProgressFunc func(scanned, limit, matched int)
