package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pacco-io/pacco/remotes"
	"github.com/pacco-io/pacco/statestore"

	// Backend types selectable via `remote add`.
	_ "github.com/pacco-io/pacco/storage/grpcstore"
	_ "github.com/pacco-io/pacco/storage/localfs"
)

// app carries the per-invocation wiring: stdio, the opened state store and
// the remote index built on it.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	home    string
	verbose bool

	store statestore.Store
	index *remotes.Index
	log   *logrus.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "pacco",
		Short:         "binary-artifact registry client",
		Long:          "pacco stores build-output directory trees under named remotes, keyed by registry property assignments.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}
	root.PersistentFlags().StringVar(&a.home, "home", "",
		"pacco home directory (default $PACCO_HOME, else ~/.pacco)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"enable debug logging on stderr")

	root.AddCommand(newRemoteCmd(a))
	root.AddCommand(newRegistryCmd(a))
	root.AddCommand(newBinaryCmd(a))
	return root
}

func (a *app) init() error {
	a.log = logrus.New()
	a.log.SetOutput(a.stderr)
	a.log.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	home := a.home
	if home == "" {
		home = os.Getenv("PACCO_HOME")
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		home = filepath.Join(userHome, ".pacco")
	}
	store, err := statestore.OpenFile(filepath.Join(home, "config.yaml"))
	if err != nil {
		return err
	}
	a.store = store
	a.index = remotes.NewIndex(store)
	a.log.WithField("home", home).Debug("state store opened")
	return nil
}

func (a *app) shutdown() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
