package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sirprodigle/navfix/internal/app"
	"github.com/sirprodigle/navfix/internal/config"
)

var cfg config.Config

// started is set once a command body runs. From then on failures have
// already been printed by loadConfig or the app.
var started bool

var rootCmd = &cobra.Command{
	Use:   "navfix",
	Short: "MkDocs structure fixer",
	Long: `navfix removes duplicate navigation entries from an MkDocs content tree.

A document that shares its name with a sibling directory (topic.md next to
topic/) becomes that directory's index.md, its images move with it, and links
to the old location are rewritten to point at the directory.`,
	Args:          cobra.NoArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report relative markdown links that do not resolve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started = true
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return app.New(&cfg).Validate(cmd.Context())
	},
}

func init() {
	cfg = config.NewConfig()
	cfg.InitFlags(rootCmd)
	rootCmd.AddCommand(validateCmd)
}

func run(cmd *cobra.Command, args []string) error {
	started = true
	if err := loadConfig(cmd); err != nil {
		return err
	}
	return app.New(&cfg).Run(cmd.Context())
}

// loadConfig reports config errors itself; the app logs its own.
func loadConfig(cmd *cobra.Command) error {
	if err := cfg.LoadFromViper(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stderr io.Writer) int {
	started = false
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrContentRootMissing):
		return 2
	}
	if !started {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}
