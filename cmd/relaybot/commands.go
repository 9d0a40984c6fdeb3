package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relaybot/internal/router"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List every command with its plugin, in resolution order",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		rt, err := a.router(router.StaticHost{NetworkName: cfg.Network, Nick: cfg.IRC.Nick})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMMAND\tPLUGIN\tUSAGE")
		for _, res := range rt.Plugins().Commands() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", res.Command.Name, res.Plugin.Name(), res.Command.Usage)
		}
		return w.Flush()
	},
}
