package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/scp"
)

func newSCPCmd() *cobra.Command {
	var host string
	var port int
	var username, password, keyFile string

	c := &cobra.Command{
		Use:   "scp",
		Short: "Mount a filesystem over an SSH shell session",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(conf, scp.New(scp.Config{
				Addr:     fmt.Sprintf("%s:%d", host, port),
				Username: username,
				Password: password,
				KeyFile:  keyFile,
			}))
		},
	}

	c.Flags().StringVar(&host, "host", "", "SSH server hostname")
	c.Flags().IntVar(&port, "port", 22, "SSH server port")
	c.Flags().StringVar(&username, "username", "", "SSH username")
	c.Flags().StringVar(&password, "password", "", "SSH password (ignored if --key-file is set)")
	c.Flags().StringVar(&keyFile, "key-file", "", "path to a private key for public-key authentication")
	return c
}
