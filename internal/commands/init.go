package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// InitOptions are the answers collected by the init form.
type InitOptions struct {
	ProjectName string
	AppName     string
}

// FileSystem abstracts the filesystem writes init performs.
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type osFileSystem struct{}

func (fs *osFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// InitCommand scaffolds a new graphmux project: graphmux.yaml plus one app
// directory with a model manifest and a schema declaration.
type InitCommand struct {
	filesystem FileSystem
	// For testing: if set, skip prompting
	testOptions *InitOptions
}

func NewInitCommand() *InitCommand {
	return &InitCommand{filesystem: &osFileSystem{}}
}

func (c *Controller) Init(ctx context.Context) error {
	cmd := NewInitCommand()
	return cmd.Run(ctx)
}

func (ic *InitCommand) Run(ctx context.Context) error {
	return ic.RunWithOptions(ctx)
}

func (ic *InitCommand) RunWithOptions(ctx context.Context, opts ...tea.ProgramOption) error {
	var options *InitOptions
	var err error

	// For testing: use provided options instead of prompting
	if ic.testOptions != nil {
		options = ic.testOptions
	} else {
		options, err = ic.promptInitOptions(opts...)
		if err != nil {
			return fmt.Errorf("failed to get init options: %w", err)
		}
	}

	if err := ic.scaffoldProject(options); err != nil {
		return fmt.Errorf("failed to scaffold project: %w", err)
	}

	fmt.Printf("Created project %s with app %s\n", options.ProjectName, options.AppName)
	fmt.Printf("Next: cd %s && graphmux serve\n", options.ProjectName)
	return nil
}

func (ic *InitCommand) promptInitOptions(opts ...tea.ProgramOption) (*InitOptions, error) {
	var projectName string
	var appName string

	form := ic.createInitForm(&projectName, &appName)

	if len(opts) > 0 {
		// For testing: run with provided options
		program := tea.NewProgram(form, opts...)
		if _, err := program.Run(); err != nil {
			return nil, err
		}
	} else {
		if err := form.Run(); err != nil {
			return nil, err
		}
	}

	return &InitOptions{ProjectName: projectName, AppName: appName}, nil
}

func (ic *InitCommand) createInitForm(projectName *string, appName *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Directory to create for the new project").
				Value(projectName).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("project name cannot be empty")
					}
					if _, err := ic.filesystem.Stat(s); err == nil {
						return fmt.Errorf("directory %s already exists", s)
					}
					return nil
				}),

			huh.NewInput().
				Title("First app").
				Description("Name of the first model app").
				Value(appName).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("app name cannot be empty")
					}
					return nil
				}),
		),
	)
}

func (ic *InitCommand) scaffoldProject(options *InitOptions) error {
	appDir := filepath.Join(options.ProjectName, "apps", options.AppName)
	if err := ic.filesystem.MkdirAll(appDir, 0755); err != nil {
		return err
	}

	configBody := fmt.Sprintf(`debug: true

server:
  host: 0.0.0.0
  port: 8080

apps:
  - apps/%s

schema_store: schemas.json

persisted_queries:
  enabled: true
`, options.AppName)
	configPath := filepath.Join(options.ProjectName, "graphmux.yaml")
	if err := ic.filesystem.WriteFile(configPath, []byte(configBody), 0644); err != nil {
		return err
	}

	modelsBody := fmt.Sprintf(`{
  "app": %q,
  "models": [
    {
      "name": "Item",
      "fields": [
        {"name": "id", "type": "string", "required": true},
        {"name": "title", "type": "string", "required": true}
      ]
    }
  ]
}
`, options.AppName)
	if err := ic.filesystem.WriteFile(filepath.Join(appDir, "models.json"), []byte(modelsBody), 0644); err != nil {
		return err
	}

	schemasBody := fmt.Sprintf(`{
  "name": "default",
  "description": "Default schema for %s",
  "apps": [%q],
  "enabled": true
}
`, options.AppName, options.AppName)
	return ic.filesystem.WriteFile(filepath.Join(appDir, "schemas.json"), []byte(schemasBody), 0644)
}
