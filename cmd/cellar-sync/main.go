package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/open-edge-platform/cellar-sync/internal/config"
	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
)

// Command line flags
var (
	configFile   string
	logLevel     string
	verbose      bool
	dryRun       bool
	compression  string
	tempDir      string
	reportDir    string
	showProgress bool

	// set when -h/--help was handled so the process exits non-zero
	helpRequested bool
)

const longDescription = `Archive locally built Homebrew kegs and Ruby installations and upload
them to S3 so other machines can reuse them instead of rebuilding.

With no argument every keg in the cellar and every interpreter is synced.
An argument of the form NAME/VERSION syncs that single keg; any other
argument is treated as an interpreter version.

Objects that already exist in the bucket are never overwritten.

Environment:
  ` + config.EnvAccessKey + `     S3 access key (required)
  ` + config.EnvSecretKey + `     S3 secret key (required)
  ` + config.EnvBucket + `         bucket name (default ` + config.DefaultBucket + `)
  ` + config.EnvRegion + `         bucket region (default ` + config.DefaultRegion + `)
  ` + config.EnvEndpoint + `       endpoint override for S3-compatible stores
  ` + config.EnvHomebrewRoot + `  Homebrew prefix (default /usr/local)
  ` + config.EnvRubiesRoot + `    interpreter root (default ` + config.DefaultRubiesRoot + `)
  ` + config.EnvCompression + `    bz2, gz, xz or zst (default bz2)`

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the root command and returns the process exit code.
func run(args []string, stderr io.Writer) int {
	rootCmd := createRootCommand()
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if helpRequested {
		return 1
	}
	return 0
}

// createRootCommand creates the cellar-sync command
func createRootCommand() *cobra.Command {
	helpRequested = false

	rootCmd := &cobra.Command{
		Use:   "cellar-sync [flags] [NAME/VERSION | RUBY_VERSION]",
		Short: "Upload locally built packages and interpreters to S3",
		Long:  longDescription,
		Args:  cobra.MaximumNArgs(1),

		PersistentPreRunE: prepare,
		RunE:              executeSync,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	addFlags(rootCmd.Flags())

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpRequested = true
		defaultHelp(cmd, args)
	})

	return rootCmd
}

func addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	fs.BoolVar(&dryRun, "dry-run", false, "Report what would be uploaded without archiving or uploading")
	fs.StringVar(&compression, "compression", "", "Archive compression: bz2, gz, xz or zst")
	fs.StringVar(&tempDir, "temp-dir", "", "Directory for temporary archives")
	fs.StringVar(&reportDir, "report-dir", "", "Write lists of uploaded and failed items into this directory")
	fs.BoolVar(&showProgress, "progress", isatty.IsTerminal(os.Stderr.Fd()), "Show a progress bar during a full sync")
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" when neither --log-level nor --verbose was given.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed && verbose {
		return "debug"
	}
	return ""
}
