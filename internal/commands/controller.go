// Package commands contains the CLI commands for the application
package commands

// Flags carries the global flags shared by every command.
type Flags struct {
	LogLevel string
	Config   string
}

// Controller dispatches CLI commands. One instance exists per process.
type Controller struct {
	Flags *Flags
}
