package main

import (
	"github.com/spf13/cobra"

	"github.com/pacco-io/pacco/props"
	"github.com/pacco-io/pacco/registry"
)

func newBinaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binary",
		Short: "move binary trees in and out of a registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <remote> <registry> <srcDir> <k=v,k=v,...>",
		Short: "store a directory tree under a property assignment",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := props.ParseAssignment(args[3])
			if err != nil {
				return err
			}
			return withManager(a, args[0], func(m *registry.Manager) error {
				return m.Upload(args[1], assignment, args[2])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download <remote> <registry> <destDir> <k=v,k=v,...>",
		Short: "fetch a stored tree into a directory",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := props.ParseAssignment(args[3])
			if err != nil {
				return err
			}
			return withManager(a, args[0], func(m *registry.Manager) error {
				return m.Download(args[1], assignment, args[2])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <remote> <registry> <k=v,k=v,...>",
		Short: "delete a stored binary",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := props.ParseAssignment(args[2])
			if err != nil {
				return err
			}
			return withManager(a, args[0], func(m *registry.Manager) error {
				return m.Remove(args[1], assignment)
			})
		},
	})

	return cmd
}
