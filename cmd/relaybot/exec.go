package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"relaybot/internal/router"
)

var (
	execSender  string
	execChannel string
)

var execCmd = &cobra.Command{
	Use:   "exec [line]",
	Short: "Run command lines locally and print the replies",
	Long: `Run a command line through the router as if it was sent in chat.
Without arguments, lines are read from stdin until EOF.`,
	Example: `  relaybot exec 'echo hello | count a,b,c'
  printf 'ping\nhelp echo\n' | relaybot exec`,
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execSender, "sender", "console", "Nick of the sender")
	execCmd.Flags().StringVar(&execChannel, "channel", "", "Channel to send to; empty sends a private message")
}

func runExec(c *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rt, err := a.router(router.StaticHost{NetworkName: cfg.Network, Nick: cfg.IRC.Nick})
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	handle := func(line string) {
		q, ok := rt.Route(c.Context(), router.Message{Sender: execSender, Channel: execChannel, Text: line})
		if !ok {
			return
		}
		for _, m := range q.Messages() {
			fmt.Fprintln(out, m)
		}
	}

	if len(args) > 0 {
		handle(strings.Join(args, " "))
		return nil
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		handle(sc.Text())
	}
	return sc.Err()
}
