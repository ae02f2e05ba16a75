package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/swagger"
	_ "github.com/krau/tgkw/api/docs"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/service"
	"github.com/krau/tgkw/webembed"
)

var validate = validator.New()

type Options struct {
	Searcher engine.Searcher
	Builder  *service.ReportBuilder
	Store    *service.ReportStore

	DefaultLimit int
	MaxLimit     int
	// empty disables auth
	ApiKey string
}

type Server struct {
	app  *fiber.App
	opts Options
}

// @title						tgkw API
// @version					1.0
// @description				Search a Telegram channel for a keyword and download the matches as a Word document
// @BasePath					/
// @securityDefinitions.apikey	ApiKeyAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the API key.
func New(ctx context.Context, opts Options) *Server {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = engine.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	s := &Server{opts: opts}

	app := fiber.New(
		fiber.Config{
			AppName:               "tgkw",
			JSONEncoder:           sonic.Marshal,
			JSONDecoder:           sonic.Unmarshal,
			ErrorHandler:          errorHandler,
			DisableStartupMessage: true,
		},
	)
	baseLogger := log.FromContext(ctx)
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(log.WithContext(c.UserContext(), baseLogger))
		return c.Next()
	})
	loggerCfg := logger.ConfigDefault
	loggerCfg.Format = "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${queryParams} | ${error}\n"
	app.Use(logger.New(loggerCfg))
	app.Use(cors.New())

	app.Get("/docs/*", swagger.HandlerDefault)

	var guarded []fiber.Handler
	if opts.ApiKey != "" {
		guarded = append(guarded, newKeyAuth(opts.ApiKey))
	}
	app.Post("/search", append(guarded, s.Search)...)
	app.Get("/download/:filename", append(guarded, s.Download)...)

	app.Use("/", filesystem.New(filesystem.Config{
		Root:         http.FS(webembed.Static),
		Index:        "index.html",
		NotFoundFile: "404.html",
	}))

	s.app = app
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	log.FromContext(ctx).Info("HTTP server listening", "addr", addr)
	select {
	case <-ctx.Done():
		log.FromContext(ctx).Info("Shutting down HTTP server")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	}
}

// errorHandler renders every error as {"detail": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.FromContext(c.UserContext()).Error("Request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Detail: msg})
}

func newKeyAuth(key string) fiber.Handler {
	sum := sha256.Sum256([]byte(key))
	storedKeyHash := sum[:]
	return keyauth.New(keyauth.Config{
		Validator: func(c *fiber.Ctx, input string) (bool, error) {
			if input == "" {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			inputSum := sha256.Sum256([]byte(input))
			if subtle.ConstantTimeCompare(inputSum[:], storedKeyHash) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return &fiber.Error{Code: fiber.StatusUnauthorized, Message: err.Error()}
		},
	})
}
