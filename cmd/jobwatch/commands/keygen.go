package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/auth"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin key",
	Long: `Generate a random admin key and its bcrypt hash.

Give the key to CLI users and set the hash as ADMIN_API_KEY_HASH on the
server, so the plain key never has to be stored there.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAdminKey()
		if err != nil {
			return err
		}
		hash, err := auth.HashAdminKey(key)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if quiet {
			fmt.Fprintln(out, key)
			return nil
		}
		fmt.Fprintf(out, "Admin key:          %s\n", key)
		fmt.Fprintf(out, "ADMIN_API_KEY_HASH: %s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
