package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the configured roles and their skill keywords",
	Run: func(cmd *cobra.Command, _ []string) {
		config, err := getConfig()
		if err != nil {
			log.Fatalf("getting a config: %s", err)
		}

		catalog, err := newCatalog(config)
		if err != nil {
			log.Fatal(err)
		}

		for _, role := range catalog.Roles() {
			profile, _ := catalog.Profile(role)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", role, strings.Join(profile.Skills, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
