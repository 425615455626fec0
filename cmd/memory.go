package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/memory"
)

func newMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Mount an in-memory filesystem (for testing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(c, memory.New())
		},
	}
}
