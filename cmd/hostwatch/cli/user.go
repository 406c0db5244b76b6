package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard accounts",
		Long:  "Create, list, reset and (de)activate the accounts that can log in to the dashboard.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserPasswdCmd())
	cmd.AddCommand(newUserActiveCmd("activate", true))
	cmd.AddCommand(newUserActiveCmd("deactivate", false))

	return cmd
}

// withCredentials opens the store for the duration of fn.
func withCredentials(fn func(*service.CredentialService) error) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(service.NewCredentialService(store))
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a new account",
		Example: `  hostwatch user create alice --role admin --password 'correct horse'
  hostwatch user create bob                 # viewer, prompts for password`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = readPassword("Password: ", true); err != nil {
					return err
				}
			}
			return withCredentials(func(creds *service.CredentialService) error {
				u, err := creds.CreateUser(cmd.Context(), args[0], password, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %q\n", u.Role, u.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleViewer), "Account role: admin or viewer")

	return cmd
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(func(creds *service.CredentialService) error {
				users, err := creds.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printUsers(w io.Writer, users []model.PublicUser, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Fprintln(w, "No accounts configured. Use 'hostwatch user create' to create one.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tACTIVE\tCREATED")
	for _, u := range users {
		active := "yes"
		if !u.Active {
			active = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.Role, active, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// ---------- user passwd ----------

func newUserPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset an account's password",
		Long: `Set a new password for an account without knowing the current one.
Tokens issued before the reset stay valid until they expire.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword("New password: ", true); err != nil {
					return err
				}
			}
			return withCredentials(func(creds *service.CredentialService) error {
				u, err := creds.ResetPassword(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %q\n", u.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")

	return cmd
}

// ---------- user activate / deactivate ----------

func newUserActiveCmd(use string, active bool) *cobra.Command {
	short := "Re-enable a deactivated account"
	if !active {
		short = "Disable an account; it can no longer log in"
	}

	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCredentials(func(creds *service.CredentialService) error {
				u, err := creds.SetUserActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q %sd\n", u.Username, use)
				return nil
			})
		},
	}
}
