package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/krau/tgkw/config"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Telegram and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := config.Init(configPath); err != nil {
			return err
		}
		session, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer closeSession(ctx, session)

		uc, err := session.Client(ctx)
		if err != nil {
			return err
		}
		self := uc.TClient.Self
		log.FromContext(ctx).Info("Session saved", "path", config.C.Session)
		fmt.Printf("Logged in as %s %s (@%s)\n", self.FirstName, self.LastName, self.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
