package terminal

import (
	"io"
	"os"

	"github.com/seismo-tools/hazengine/pkg/runtime/terminal/commands"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	registry calc.Registry
	output   io.Writer
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Registry calc.Registry
	Output   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		registry: opts.Registry,
		output:   opts.Output,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Seismic hazard and risk calculation engine",
	}

	cmd.AddCommand(commands.NewRunCmd(cli.registry, cli.output))
	cmd.AddCommand(commands.NewReportCmd(cli.output))
	cmd.AddCommand(commands.NewJobsCmd(cli.output))
	cmd.AddCommand(commands.NewModesCmd(cli.registry, cli.output))

	return cmd
}
