package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the loandesk binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loandesk",
		Short: "loandesk - loan applications with a support chat",
		Long: "Serves the loan application API and its support chat, runs the background\n" +
			"worker, and offers a terminal chat client. Settings come from the\n" +
			"environment or a .env file in the working directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every request and SQL statement")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewChatCommand(opts))
	cmd.AddCommand(NewGrantAdminCommand(opts))

	return cmd
}
