package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd(dialAdmin)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
