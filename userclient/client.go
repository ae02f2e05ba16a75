package userclient

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/ncruces/go-sqlite3/gormlite"

	_ "github.com/ncruces/go-sqlite3/embed"
)

type ClientConfig struct {
	AppID   int
	AppHash string
	Phone   string
	// sqlite file holding the authorized session
	Session string
	LogDir  string
}

type UserClient struct {
	TClient *gotgproto.Client
	logger  *zap.Logger
}

func (u *UserClient) Close() error {
	if u.TClient != nil {
		u.TClient.Stop()
	}
	if u.logger != nil {
		return u.logger.Sync()
	}
	return nil
}

func newClientLogger(dir string) *zap.Logger {
	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(dir, "client.jsonl"),
			MaxBackups: 3,
			MaxAge:     7,
		}),
		zap.DebugLevel,
	))
}

// NewUserClient connects and authorizes a user account. ctx bounds the lifetime
// of the connection, not only the dial.
func NewUserClient(ctx context.Context, cfg ClientConfig) (*UserClient, error) {
	log.FromContext(ctx).Debug("Initializing user client", "session", cfg.Session)
	if err := os.MkdirAll(filepath.Dir(cfg.Session), 0o755); err != nil {
		return nil, errors.Wrap(err, "create session dir")
	}
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = filepath.Join("data", "logs")
	}

	type result struct {
		client *UserClient
		err    error
	}
	res := make(chan result, 1)
	go func() {
		tclientLog := newClientLogger(logDir)
		tclient, err := gotgproto.NewClient(
			cfg.AppID,
			cfg.AppHash,
			gotgproto.ClientTypePhone(cfg.Phone),
			&gotgproto.ClientOpts{
				Session:          sessionMaker.SqlSession(gormlite.Open(cfg.Session)),
				AuthConversator:  &terminalAuthConversator{ctx: ctx, phone: cfg.Phone},
				Logger:           tclientLog,
				Context:          ctx,
				DisableCopyright: true,
				Middlewares:      newDefaultMiddlewares(5 * time.Minute),
			},
		)
		if err != nil {
			_ = tclientLog.Sync()
			res <- result{err: err}
			return
		}
		res <- result{client: &UserClient{TClient: tclient, logger: tclientLog}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-res:
		if r.err != nil {
			return nil, r.err
		}
		self := r.client.TClient.Self
		log.FromContext(ctx).Info("User client ready", "id", self.ID, "username", self.Username)
		return r.client, nil
	}
}
