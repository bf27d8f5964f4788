package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacco-io/pacco/props"
	"github.com/pacco-io/pacco/registry"
	"github.com/pacco-io/pacco/storage"
)

// withManager opens the named remote's backend, runs fn against a registry
// manager for it, and closes the backend afterwards.
func withManager(a *app, remote string, fn func(*registry.Manager) error) error {
	backend, err := a.index.Open(remote)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(registry.NewManager(backend))
}

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "manage registries within a remote",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <remote>",
		Short: "list registry names in a remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(a, args[0], func(m *registry.Manager) error {
				names, err := m.List()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, renderNames(names))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <remote> <name> <p1,p2,...>",
		Short: "create a registry with the given property schema",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := props.ParseSchema(args[2])
			if err != nil {
				return err
			}
			return withManager(a, args[0], func(m *registry.Manager) error {
				return m.Create(args[1], schema)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <remote> <name>",
		Short: "remove an empty registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(a, args[0], func(m *registry.Manager) error {
				if err := m.Drop(args[1]); err != nil {
					if storage.IsNotEmpty(err) {
						return fmt.Errorf("%w (remove its binaries first)", err)
					}
					return err
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "binaries <remote> <name>",
		Short: "list the stored binaries' canonical property mappings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(a, args[0], func(m *registry.Manager) error {
				keys, err := m.Binaries(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, renderKeys(keys))
				return nil
			})
		},
	})

	return cmd
}
