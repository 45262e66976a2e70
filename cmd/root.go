package cmd

import (
	"github.com/spf13/cobra"
	migratesend "github.com/stratastor/rodent-migrate-send/cmd/migrate-send"
	"github.com/stratastor/rodent-migrate-send/cmd/version"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rodent-migrate-send",
		Short: "rodent-migrate-send: ZFS migration sync sender worker",
	}

	rootCmd.AddCommand(migratesend.NewMigrateSendCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd
}
