package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
)

// Schemas prints every registered schema with its scope and enabled state.
func (c *Controller) Schemas(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	schemas := p.registry.List(false)
	if len(schemas) == 0 {
		fmt.Println("no schemas registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tAPPS\tDESCRIPTION")
	for _, info := range schemas {
		enabled := "yes"
		if !info.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.Name, enabled, strings.Join(info.Apps, ","), info.Description)
	}
	return w.Flush()
}
