package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/kube"
)

func newKubeCmd() *cobra.Command {
	var kubeconfig, namespace, pod, container string

	c := &cobra.Command{
		Use:   "kube",
		Short: "Mount a container's filesystem inside a Kubernetes pod",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			return runMount(conf, kube.New(kube.Config{
				Kubeconfig: kubeconfig,
				Namespace:  namespace,
				Pod:        pod,
				Container:  container,
			}))
		},
	}

	c.Flags().StringVar(&kubeconfig, "kubeconfig", "", "path to kubeconfig (empty uses in-cluster config)")
	c.Flags().StringVar(&namespace, "namespace", "default", "pod namespace")
	c.Flags().StringVar(&pod, "pod", "", "pod name")
	c.Flags().StringVar(&container, "container", "", "container name within the pod")
	return c
}
