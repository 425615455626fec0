package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/ftp"
)

func newFTPCmd() *cobra.Command {
	var host string
	var port int
	var username, password string

	c := &cobra.Command{
		Use:   "ftp",
		Short: "Mount a filesystem over FTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(conf, ftp.New(ftp.Config{
				Addr:     fmt.Sprintf("%s:%d", host, port),
				Username: username,
				Password: password,
			}))
		},
	}

	c.Flags().StringVar(&host, "host", "", "FTP server hostname")
	c.Flags().IntVar(&port, "port", 21, "FTP server port")
	c.Flags().StringVar(&username, "username", "anonymous", "FTP username")
	c.Flags().StringVar(&password, "password", "", "FTP password")
	return c
}
