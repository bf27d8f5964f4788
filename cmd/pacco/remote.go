package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pacco-io/pacco/storage/backendreg"
)

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "manage remotes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list remote names in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.index.List()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, renderNames(names))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <type>",
		Short: "add a remote; backend config is read as key=value lines from stdin",
		Long: "Add a remote of the given backend type (one of: " +
			strings.Join(backendreg.Names(), ", ") + ").\n" +
			"Backend configuration is read from standard input, one key=value line\n" +
			"per config field, terminated by EOF. Unknown fields are rejected.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := readConfig(a)
			if err != nil {
				return err
			}
			if err := a.index.Add(args[0], args[1], config); err != nil {
				return err
			}
			a.log.WithField("remote", args[0]).Debug("remote added")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "remove a remote (clears the default if it pointed there)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.index.Remove(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list_default",
		Short: "show the default remote as a 0-or-1-element list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ok, err := a.index.Default()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.stdout, renderNames(nil))
				return nil
			}
			fmt.Fprintln(a.stdout, renderNames([]string{name}))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set_default [<name>]",
		Short: "set the default remote, or clear it when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.index.ClearDefault()
			}
			return a.index.SetDefault(args[0])
		},
	})

	return cmd
}

// readConfig parses key=value lines from stdin until EOF. Blank lines are
// skipped so heredocs stay forgiving.
func readConfig(a *app) (map[string]string, error) {
	config := map[string]string{}
	scanner := bufio.NewScanner(a.stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config line %q is not key=value", line)
		}
		config[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return config, nil
}
