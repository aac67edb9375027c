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
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/watch"
)

// runIngest processes the given files and directories, then optionally
// keeps watching the inputs directory for new drops.
func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !watchForDir {
		return fmt.Errorf("nothing to do: pass file or directory paths, or --watch")
	}

	svc, err := buildService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	var processed, failed int
	for _, path := range args {
		files, err := collectFiles(path)
		if err != nil {
			return err
		}
		for _, file := range files {
			result, err := svc.IngestFile(ctx, file)
			if err != nil {
				failed++
				fmt.Println(errorStyle.Render("  ✗ ") + file + dimStyle.Render("  "+err.Error()))
				continue
			}
			switch {
			case result.Status == model.DocStatusFailed:
				failed++
				fmt.Println(warnStyle.Render("  ✗ ") + file + dimStyle.Render("  pipeline failed, see status "+result.DocID))
			case result.Skipped:
				fmt.Println(dimStyle.Render("  = " + file + "  already processed"))
			default:
				processed++
				fmt.Printf("%s%s %s\n",
					successStyle.Render("  ✓ "), file,
					dimStyle.Render(fmt.Sprintf("doc=%s chunks=%d failed_chunks=%d",
						result.DocID, len(result.Manifest.Chunks), result.Manifest.Failed)))
			}
		}
	}
	if len(args) > 0 {
		fmt.Println(headingStyle.Render(fmt.Sprintf("Ingested %d document(s), %d failed", processed, failed)))
	}

	if !watchForDir {
		return nil
	}

	dir := watchDir
	if dir == "" {
		dir = config.Ingest.InputsDir
	}
	if dir == "" {
		return fmt.Errorf("--watch needs --inputs-dir or ingest.inputs_dir in config")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create inputs dir %s: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	watcher, err := watch.NewWatcher(dir, watch.IngestHandler(watchCtx, svc, slog.Default()), nil)
	if err != nil {
		return err
	}
	if err := watcher.Start(watchCtx); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Println(headingStyle.Render("Watching ") + dir + dimStyle.Render("  (ctrl-c to stop)"))
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	return nil
}

// collectFiles expands a path into the regular files beneath it, skipping
// hidden entries.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(p)
		if d.IsDir() {
			if p != path && base[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if base[0] == '.' {
			return nil
		}
		files = append(files, p)
		return nil
	})
	return files, err
}
