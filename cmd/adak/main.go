// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Adak/pkg/logging"
)

var (
	config  Config
	rootLog *logging.Logger
)

func main() {
	defer func() {
		if rootLog != nil {
			rootLog.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = cfg

		rootLog = logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Log.Level),
			Service: "adak",
			LogDir:  config.Log.Dir,
			JSON:    config.Log.JSON,
			Quiet:   config.Log.Quiet,
		})
		slog.SetDefault(rootLog.Slog())
		return nil
	}
}
