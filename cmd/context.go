package cmd

import "context"

func rootContext() context.Context {
	return context.Background()
}
