package main

import (
	"fmt"
	"os"

	"github.com/walletops/batcher/cmd/batcher"
)

func main() {
	rootCmd := batcher.BuildBatcherCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
