package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/sftp"
)

func newSFTPCmd() *cobra.Command {
	var host string
	var port int
	var username, password, keyFile string

	c := &cobra.Command{
		Use:   "sftp",
		Short: "Mount a filesystem over SFTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(conf, sftp.New(sftp.Config{
				Addr:     fmt.Sprintf("%s:%d", host, port),
				Username: username,
				Password: password,
				KeyFile:  keyFile,
			}))
		},
	}

	c.Flags().StringVar(&host, "host", "", "SFTP server hostname")
	c.Flags().IntVar(&port, "port", 22, "SFTP server port")
	c.Flags().StringVar(&username, "username", "", "SFTP username")
	c.Flags().StringVar(&password, "password", "", "SFTP password (ignored if --key-file is set)")
	c.Flags().StringVar(&keyFile, "key-file", "", "path to a private key for public-key authentication")
	return c
}
