package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlink/cmd"
)

var (
	longURLFlag string
	expireFlag  int64
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short link without going through the server",
	Long: `Shortens the given URL with the configured store, cache and allocation
strategy, then prints the alias.

Example:
  shortlink create --url="https://www.google.com/search?q=go+lang" --expire=3600`,
	RunE: func(c *cobra.Command, _ []string) error {
		ctx := c.Context()
		app, err := cmd.NewApp(ctx, cmd.Cfg, cmd.Logger)
		if err != nil {
			return err
		}
		defer app.Close()

		var expire *int64
		if c.Flags().Changed("expire") {
			expire = &expireFlag
		}
		link, err := app.LinkService.Create(ctx, longURLFlag, expire)
		if err != nil {
			return errors.Wrap(err, "create short link")
		}

		out := c.OutOrStdout()
		fmt.Fprintf(out, "Alias:     %s\n", link.Alias)
		fmt.Fprintf(out, "ID:        %d\n", link.ID)
		fmt.Fprintf(out, "Short URL: %s/u/%s\n", strings.TrimRight(cmd.Cfg.Server.BaseURL, "/"), link.Alias)
		if link.ExpireAt != nil {
			fmt.Fprintf(out, "Expires:   %s\n", link.ExpireAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().Int64Var(&expireFlag, "expire", 0, "Lifetime in seconds, 0 for never")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
