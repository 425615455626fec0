package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/s3"
)

func newS3Cmd() *cobra.Command {
	var bucket, region, endpoint, profile string

	c := &cobra.Command{
		Use:   "s3",
		Short: "Mount an S3 (or S3-compatible) bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(conf, s3.New(s3.Config{
				Bucket:   bucket,
				Region:   region,
				Endpoint: endpoint,
				Profile:  profile,
			}))
		},
	}

	c.Flags().StringVar(&bucket, "bucket", "", "S3 bucket name")
	c.Flags().StringVar(&region, "region", "us-east-1", "AWS region")
	c.Flags().StringVar(&endpoint, "endpoint", "", "custom endpoint for S3-compatible stores")
	c.Flags().StringVar(&profile, "profile", "", "AWS shared config profile")
	return c
}
