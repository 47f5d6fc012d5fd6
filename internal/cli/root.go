package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	Yes        bool
	Timeout    time.Duration
	ConfigPath string
	DBPath     string
	LogLevel   string
}

type commandDeps struct {
	out     io.Writer
	err     io.Writer
	build   BuildInfo
	globals *GlobalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{
		out:     out,
		err:     out,
		build:   build,
		globals: globals,
	}

	cmd := &cobra.Command{
		Use:           "pos",
		Short:         "Point of sale catalog, orders and sales reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON output")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.BoolVarP(&globals.Yes, "yes", "y", false, "Assume yes for destructive prompts")
	flags.DurationVar(&globals.Timeout, "timeout", 0, "Command timeout (0 uses the default); a dispatched order write runs to completion")
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to config.toml")
	flags.StringVar(&globals.DBPath, "db", "", "Path to the database file")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newVersionCommand(deps),
		newInitCommand(deps),
		newStatusCommand(deps),
		newDoctorCommand(deps),
		newProductCommand(deps),
		newCategoryCommand(deps),
		newOrderCommand(deps),
		newReportCommand(deps),
		newWatchCommand(deps),
		newDBCommand(deps),
		newDebugCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
