package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/go-faster/errors"
	"github.com/krau/tgkw/api"
	"github.com/krau/tgkw/config"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/service"
	"github.com/krau/tgkw/userclient"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newSession(ctx context.Context) (*userclient.Session, error) {
	return userclient.NewSession(ctx, userclient.ClientConfig{
		AppID:   config.C.AppID,
		AppHash: config.C.AppHash,
		Phone:   config.C.Phone,
		Session: config.C.Session,
	})
}

func closeSession(ctx context.Context, s *userclient.Session) {
	if err := s.Close(); err != nil {
		log.FromContext(ctx).Warn("Failed to close session", "error", err)
	}
}

func serve(ctx context.Context) error {
	logger := log.FromContext(ctx)
	if err := config.Init(configPath); err != nil {
		return err
	}
	if err := os.MkdirAll(config.C.Output.Dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	if !fileutil.IsExist(config.C.Session) {
		logger.Warn("No saved session, the first search will ask for a login code on this terminal. Run `tgkw login` beforehand to avoid that.", "session", config.C.Session)
	}

	session, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(ctx, session)

	srv := api.New(ctx, api.Options{
		Searcher:     engine.NewScanner(session, config.C.Search.BatchSize, config.C.Search.DefaultLimit),
		Builder:      service.NewReportBuilder(config.C.Output.Dir, config.C.Output.Prefix),
		Store:        service.NewReportStore(config.C.Output.Dir),
		DefaultLimit: config.C.Search.DefaultLimit,
		MaxLimit:     config.C.Search.MaxLimit,
		ApiKey:       config.C.Api.Key,
	})
	return srv.Serve(ctx, config.C.Api.Addr)
}
