package cmd

import (
	"errors"
	"fmt"
	"os"

	"toolshed/internal/cli"
	"toolshed/internal/lifecycle"
	"toolshed/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (I/O failure, invalid arguments).
	ExitCodeError = 1
	// ExitCodePolicy indicates the tool lives in a read-only scope.
	ExitCodePolicy = 2
	// ExitCodeValidation indicates the request or the resulting file was invalid.
	ExitCodeValidation = 3
	// ExitCodeConflict indicates the target already exists or the file
	// changed underneath the operation.
	ExitCodeConflict = 4
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	projectDir string
	logLevel   string
	logFormat  string
	output     string
	noHeaders  bool
	noColor    bool
}

// rootCmd represents the base command for the toolshed application.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "toolshed",
		Short: "Inspect and manage AI assistant tools across configuration scopes",
		Long: `toolshed lists the skills, commands, prompts, servers and hooks configured
for an AI assistant across the managed, user, project and local scopes,
shows which definition wins when several scopes define the same tool, and
enables, disables, removes or moves tools with validation and backups.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		// Errors are printed once by Execute.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(opts.logFormat)
			if err != nil {
				return err
			}
			logging.Init(level, format, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.config/toolshed/config.yaml)")
	flags.StringVar(&opts.projectDir, "project", "", "project directory that relative scope roots resolve against (default is the working directory)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, wide, json or yaml")
	flags.BoolVar(&opts.noHeaders, "no-headers", false, "omit table headers")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newVersionCmd(),
		newListCmd(opts),
		newShowCmd(opts),
		newToggleCmd(opts),
		newRemoveCmd(opts),
		newMoveCmd(opts),
		newConflictsCmd(opts),
		newBackupsCmd(opts),
		newRepairCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolshed version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		var opErr *operationError
		if !errors.As(err, &opErr) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), cli.FormatError(err))
		}
		os.Exit(getExitCode(err))
	}
}

// operationError carries a failed lifecycle result out of a command. The
// printer has already reported it.
type operationError struct {
	op     string
	id     string
	result lifecycle.Result
}

func (e *operationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.op, e.id, e.result.Error)
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var policyErr *lifecycle.PolicyError
	if errors.As(err, &policyErr) {
		return ExitCodePolicy
	}
	var opErr *operationError
	if errors.As(err, &opErr) {
		switch opErr.result.Kind {
		case lifecycle.ErrorKindPolicy:
			return ExitCodePolicy
		case lifecycle.ErrorKindValidation:
			return ExitCodeValidation
		case lifecycle.ErrorKindConflict:
			return ExitCodeConflict
		}
	}
	return ExitCodeError
}
