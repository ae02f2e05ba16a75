package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/krau/tgkw/config"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/service"
	"github.com/krau/tgkw/types"
	"github.com/krau/tgkw/utils/tgutil"
	"github.com/spf13/cobra"
)

func init() {
	var (
		link    string
		keyword string
		limit   int
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search a channel once and write the report",
		Example: `  tgkw search --link https://t.me/durov --keyword telegram
  tgkw search -l @durov -k update -n 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)
			if err := config.Init(configPath); err != nil {
				return err
			}
			if keyword == "" {
				return errors.New("--keyword must not be empty")
			}
			if limit == 0 {
				limit = config.C.Search.DefaultLimit
			}
			if limit < 0 || limit > config.C.Search.MaxLimit {
				return fmt.Errorf("--limit must be between 1 and %d", config.C.Search.MaxLimit)
			}
			channel, ok := tgutil.ParseChannelHandle(link)
			if !ok {
				return tgutil.ErrInvalidLink
			}

			session, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(ctx, session)
			// log in before the progress view takes over the terminal
			if _, err := session.Client(ctx); err != nil {
				return err
			}

			scanner := engine.NewScanner(session, config.C.Search.BatchSize, config.C.Search.DefaultLimit)
			req := types.SearchRequest{Channel: channel, Keyword: keyword, Limit: limit}
			var results []types.SearchResult
			err = runSearchWithProgress(ctx, req, func(ctx context.Context, progress engine.ProgressFunc) error {
				var err error
				results, err = scanner.SearchWithProgress(ctx, req, progress)
				return err
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				logger.Warn("No messages found with the specified keyword", "channel", channel, "keyword", keyword)
				return nil
			}

			builder := service.NewReportBuilder(config.C.Output.Dir, config.C.Output.Prefix)
			name, err := builder.Build(results, keyword, channel)
			if err != nil {
				return err
			}
			fmt.Println(filepath.Join(builder.Dir(), name))
			return nil
		},
	}
	searchCmd.Flags().StringVarP(&link, "link", "l", "", "channel link or @handle")
	searchCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "keyword to look for (case-insensitive)")
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of recent messages to examine (default from config)")
	_ = searchCmd.MarkFlagRequired("link")
	_ = searchCmd.MarkFlagRequired("keyword")
	rootCmd.AddCommand(searchCmd)
}
