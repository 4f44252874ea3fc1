package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"loandesk/internal/adapter/repository/gormrepo"
	"loandesk/internal/usecase/profile"
	"loandesk/internal/validation"
)

func NewGrantAdminCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <user_id>",
		Short: "Give a user support staff rights",
		Long: `Give a user support staff rights. The user must already have a profile.
Use this to bootstrap the first administrator; later ones can be promoted
through the admin API.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := openDB(cfg, rootOpts.Verbose)
			if err != nil {
				return err
			}
			defer closeDB(gdb)

			uc := profile.NewUsecase(gormrepo.NewProfileRepository(gdb), validation.New())
			if err := uc.GrantAdmin(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("grant admin to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an administrator\n", args[0])
			return nil
		},
	}
}
