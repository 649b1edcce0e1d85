package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewProfilesCmd creates the profiles command.
func NewProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the loaded site profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)
			reg, err := loadProfiles(cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPAGINATION\tHOSTS\tSOURCE")
			for _, p := range reg.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Pagination.Style, strings.Join(p.Hosts, ","), p.Source)
			}
			return tw.Flush()
		},
	}
}
