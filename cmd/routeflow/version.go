package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// 构建时经 -ldflags 注入
var (
	version = "dev"
	commit  = "none"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("routeflow %s (%s) %s/%s\n", version, commit, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCommand)
}
