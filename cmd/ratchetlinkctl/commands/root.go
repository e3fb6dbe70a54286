package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ratchetlink/internal/app"
)

var (
	home       string
	passphrase string
	wire       *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "ratchetlinkctl",
		Short: "End-to-end ratchet messaging demo CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".ratchetlink")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			w, err := app.NewWire(app.Config{Home: home})
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ratchetlink)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect identity keys")

	root.AddCommand(initCmd(), fingerprintCmd(), demoCmd())
	return root.Execute()
}
