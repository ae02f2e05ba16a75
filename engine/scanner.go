package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/krau/tgkw/types"
	"github.com/krau/tgkw/userclient"
	"github.com/krau/tgkw/utils/tgutil"
	"github.com/rs/xid"
)

const (
	DefaultLimit     = 1000
	DefaultBatchSize = 100
)

// Scanner searches a channel by walking its history and matching text locally.
type Scanner struct {
	source       HistorySource
	batchSize    int
	defaultLimit int
}

func NewScanner(source HistorySource, batchSize, defaultLimit int) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Scanner{source: source, batchSize: batchSize, defaultLimit: defaultLimit}
}

func (s *Scanner) Search(ctx context.Context, req types.SearchRequest) ([]types.SearchResult, error) {
	return s.SearchWithProgress(ctx, req, nil)
}

// SearchWithProgress examines at most req.Limit of the most recent messages,
// service messages included, and returns the text messages containing
// req.Keyword in any letter case. Results keep the newest-first order.
func (s *Scanner) SearchWithProgress(ctx context.Context, req types.SearchRequest, progress ProgressFunc) ([]types.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	logger := log.FromContext(ctx).With("search_id", xid.New().String())
	logger.Info("Searching channel", "channel", req.Channel, "keyword", req.Keyword, "limit", limit)

	peer, err := s.source.ResolveChannel(ctx, req.Channel)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	keyword := strings.ToLower(req.Keyword)
	results := make([]types.SearchResult, 0)
	scanned, offsetID := 0, 0
	for scanned < limit {
		batch := min(s.batchSize, limit-scanned)
		page, err := s.source.GetHistory(ctx, peer, offsetID, batch)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		if len(page.Messages) == 0 {
			break
		}
		ents := tgutil.NewEntities(page.Users, page.Chats)
		for _, m := range page.Messages {
			if scanned >= limit {
				break
			}
			scanned++
			offsetID = m.GetID()
			msg, ok := m.(*tg.Message)
			if !ok || msg.Message == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(msg.Message), keyword) {
				continue
			}
			results = append(results, types.SearchResult{
				MessageID: msg.ID,
				Date:      tgutil.FormatDate(msg.Date),
				Sender:    tgutil.SenderName(msg, ents),
				Content:   msg.Message,
			})
		}
		logger.Debug("Scanned page", "scanned", scanned, "matched", len(results), "offset_id", offsetID)
		if progress != nil {
			progress(scanned, limit, len(results))
		}
		if len(page.Messages) < batch {
			break
		}
	}
	logger.Info("Search finished", "scanned", scanned, "matched", len(results))
	return results, nil
}

func (s *Scanner) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, userclient.ErrSessionUnavailable) {
		return err
	}
	log.FromContext(ctx).Error("Search failed", "error", err)
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}
