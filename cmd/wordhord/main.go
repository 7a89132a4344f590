// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wordhord/wordhord/pkg/logging"
)

// appVersion is the running application version, stamped into exports
// and backup sidecars.
const appVersion = "0.4.2"

var (
	config     Config
	configPath string
	logger     *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wordhord.yaml", "path to the YAML config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		config = c

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Logging.Level),
			LogDir:  config.Logging.Dir,
			Service: "wordhord",
			JSON:    config.Logging.JSON,
		})
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	}
}
