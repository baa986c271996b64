package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/internal/registry"
)

func newRequestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "requests [family]",
		Short:     "List the decoded requests of each device family",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: registry.Families(),
		RunE: func(cmd *cobra.Command, args []string) error {
			families := registry.Families()
			if len(args) == 1 {
				families = args
			}
			for _, family := range families {
				if err := listRequests(cmd.OutOrStdout(), family); err != nil {
					return fmt.Errorf("%s: %w", family, err)
				}
			}
			return nil
		},
	}
}

func listRequests(w io.Writer, family string) error {
	table, err := registry.ForFamily(family)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s:\n", family)
	for _, e := range table.Entries() {
		fmt.Fprintf(w, "\t%08x  nr %02x  size %3d  %s\n",
			e.Request, kgsl.IOC_NR(e.Request), kgsl.IOC_SIZE(e.Request), e.Name)
	}
	return nil
}
