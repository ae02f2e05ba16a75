package userclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/krau/tgkw/utils/cache"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSessionUnavailable = errors.New("telegram session unavailable")
	errEmptyInput         = errors.New("value must not be empty")
)

// Session owns the lazily created user client. The first caller dials,
// concurrent callers wait for the same attempt. A failed attempt is retried
// by the next caller.
type Session struct {
	base  context.Context
	cfg   ClientConfig
	dial  func(ctx context.Context, cfg ClientConfig) (*UserClient, error)
	group singleflight.Group

	mu     sync.RWMutex
	client *UserClient
	closed bool

	peers *cache.Cache[tg.InputPeerClass]
}

// NewSession does not connect. base is the context the connection lives in,
// it should outlive every request.
func NewSession(base context.Context, cfg ClientConfig) (*Session, error) {
	peers, err := cache.New[tg.InputPeerClass](24 * time.Hour)
	if err != nil {
		return nil, err
	}
	return &Session{
		base:  base,
		cfg:   cfg,
		dial:  NewUserClient,
		peers: peers,
	}, nil
}

var errSessionClosed = errors.New("session closed")

func (s *Session) current() (*UserClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errSessionClosed
	}
	return s.client, nil
}

// Client returns the connected user client, dialing it on first use.
// After Close it always fails.
func (s *Session) Client(ctx context.Context) (*UserClient, error) {
	if c, err := s.current(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	} else if c != nil {
		return c, nil
	}
	ch := s.group.DoChan("client", func() (any, error) {
		if c, err := s.current(); err != nil || c != nil {
			return c, err
		}
		c, err := s.dial(s.base, s.cfg)
		if err != nil {
			log.FromContext(ctx).Error("Failed to start user client", "error", err)
			return nil, err
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			// closed while dialing, nobody else owns c
			if cerr := c.Close(); cerr != nil {
				log.FromContext(ctx).Warn("Failed to stop user client", "error", cerr)
			}
			return nil, errSessionClosed
		}
		s.client = c
		s.mu.Unlock()
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, r.Err)
		}
		return r.Val.(*UserClient), nil
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	c := s.client
	s.client = nil
	s.closed = true
	s.mu.Unlock()

	s.peers.Close()
	if c == nil {
		return nil
	}
	return c.Close()
}
