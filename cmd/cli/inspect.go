package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlink/cmd"
	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/idgen"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/services"
)

// InspectCmd représente la commande 'inspect'
var InspectCmd = &cobra.Command{
	Use:   "inspect [alias]",
	Short: "Decodes an alias and shows the stored link",
	Long: `Decodes the alias back to its id, splits the id into its snowflake fields
(timestamp, datacenter, worker, sequence) and prints the stored record.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	cmd.RootCmd.AddCommand(InspectCmd)
}

func runInspect(c *cobra.Command, args []string) error {
	alias := args[0]
	ctx := c.Context()

	app, err := cmd.NewApp(ctx, cmd.Cfg, cmd.Logger)
	if err != nil {
		return err
	}
	defer app.Close()

	id, link, err := app.LinkService.Inspect(ctx, alias)
	if errors.Is(err, customerrors.ErrInvalidInput) {
		return errors.Wrapf(err, "alias %q cannot be decoded", alias)
	}
	if err != nil && !errors.Is(err, customerrors.ErrNotFound) {
		return err
	}

	var parts *idgen.Parts
	if cmd.Cfg.ShortCode.Strategy == services.StrategySnowflake {
		p := app.Generator.Decompose(id)
		parts = &p
	}
	printInspection(c.OutOrStdout(), alias, id, parts, link)
	return nil
}

func printInspection(out io.Writer, alias string, id uint64, parts *idgen.Parts, link *models.Link) {
	fmt.Fprintf(out, "Alias:      %s\n", alias)
	fmt.Fprintf(out, "ID:         %d\n", id)
	if parts != nil {
		fmt.Fprintf(out, "Generated:  %s\n", parts.Time.Format("2006-01-02 15:04:05.000 MST"))
		fmt.Fprintf(out, "Datacenter: %d\n", parts.DatacenterID)
		fmt.Fprintf(out, "Worker:     %d\n", parts.WorkerID)
		fmt.Fprintf(out, "Sequence:   %d\n", parts.Sequence)
	}
	if link == nil {
		fmt.Fprintln(out, "Stored:     no")
		return
	}
	fmt.Fprintf(out, "URL:        %s\n", link.URL)
	fmt.Fprintf(out, "Created:    %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))
	if link.ExpireAt != nil {
		fmt.Fprintf(out, "Expires:    %s\n", link.ExpireAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(out, "Expires:    never")
	}
}
