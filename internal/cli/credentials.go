package cli

import (
	"fmt"

	"github.com/Sternrassler/jamfctl/pkg/config"
	"github.com/spf13/cobra"
)

func newCredentialsCommand(rt *runtimeState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage passwords stored in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the password for --user on --server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := rt.settings
			if err := s.RequireConnection(); err != nil {
				return err
			}
			if s.Password == "" {
				if rt.cfg.Prompter == nil {
					return fmt.Errorf("%w for %s", config.ErrNoPassword, s.Account())
				}
				secret, err := rt.cfg.Prompter(fmt.Sprintf("Password for %s: ", s.Account()))
				if err != nil {
					return err
				}
				s.Password = secret
			}
			if err := config.StorePassword(rt.cfg.Keyring, s); err != nil {
				return err
			}
			fmt.Fprintf(rt.cfg.Out, "Stored password for %s\n", s.Account())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored password for --user on --server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := rt.settings
			if err := s.RequireConnection(); err != nil {
				return err
			}
			if err := config.DeletePassword(rt.cfg.Keyring, s); err != nil {
				return err
			}
			fmt.Fprintf(rt.cfg.Out, "Deleted password for %s\n", s.Account())
			return nil
		},
	})

	return cmd
}
