// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "osptbwt [command] (flags)",
	Short: "online run-length BWT construction tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(buildCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
	_ = os.Stdout.Sync()
}
