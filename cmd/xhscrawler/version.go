package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"xhscrawler/pkg/signer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "xhscrawler %s\n", version)
		fmt.Fprintf(w, "  commit:   %s\n", gitCommit)
		fmt.Fprintf(w, "  built:    %s\n", buildDate)
		fmt.Fprintf(w, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(w, "  signers:  %v\n", signer.Versions())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
