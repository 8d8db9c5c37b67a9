package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Validate checks every registered schema against the model catalog and prints
// the results. Exits non-zero when any schema is invalid.
func (c *Controller) Validate(ctx context.Context) error {
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

	names := p.registry.Names(false)
	if len(names) == 0 {
		fmt.Println("no schemas registered")
		return nil
	}

	invalid := 0
	for _, name := range names {
		result := p.registry.ValidateSchema(name)
		if result.Valid {
			fmt.Printf("✓ %s (%d models)\n", name, result.ModelCount)
		} else {
			invalid++
			fmt.Printf("✗ %s\n", name)
			for _, msg := range result.Errors {
				fmt.Printf("    error: %s\n", msg)
			}
		}
		for _, msg := range result.Warnings {
			fmt.Printf("    warning: %s\n", msg)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d schemas failed validation", invalid, len(names))
	}
	fmt.Printf("%d schemas valid\n", len(names))
	return nil
}
