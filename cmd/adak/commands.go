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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Adak/services/graphrag"
)

// --- Global Command Variables ---
var (
	configPath string

	// ingest flags
	watchDir    string
	watchForDir bool

	// query flags
	queryMode string
	queryTopK int

	// graph flags
	graphStart    string
	graphMaxDepth int
	graphMaxNodes int
	graphJSON     bool

	rootCmd = &cobra.Command{
		Use:   "adak",
		Short: "A cli to build and query a knowledge graph from your documents",
		Long: `Adak turns unstructured text into a knowledge graph of entities and
relationships and answers natural-language questions against it, using a
local or hosted LLM backend.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the knowledge-graph HTTP API",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	ingestCmd = &cobra.Command{
		Use:     "ingest [path...]",
		Short:   "Ingest text files into the knowledge graph",
		Aliases: []string{"i"},
		RunE:    runIngest, // Defined in cmd_ingest.go
	}

	queryCmd = &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question against the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery, // Defined in cmd_query.go
	}

	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Export the graph or a bounded subgraph around an entity",
		RunE:  runGraph, // Defined in cmd_graph.go
	}

	graphStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show entity and relationship counts",
		RunE:  runGraphStats, // Defined in cmd_graph.go
	}

	statusCmd = &cobra.Command{
		Use:   "status [doc-id]",
		Short: "Show document processing status",
		RunE:  runStatus, // Defined in cmd_status.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the adak version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("adak " + graphrag.ServiceVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")

	ingestCmd.Flags().BoolVar(&watchForDir, "watch", false, "Keep running and ingest files dropped into the inputs directory")
	ingestCmd.Flags().StringVar(&watchDir, "inputs-dir", "", "Directory to watch with --watch (defaults to ingest.inputs_dir)")

	queryCmd.Flags().StringVar(&queryMode, "mode", "hybrid", "Retrieval mode: naive, local, global, or hybrid")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "Number of chunks/entities/relationships in context (default from config)")

	graphCmd.Flags().StringVar(&graphStart, "start", "", "Entity to walk from (empty exports the whole graph)")
	graphCmd.Flags().IntVar(&graphMaxDepth, "max-depth", 2, "Traversal depth bound")
	graphCmd.Flags().IntVar(&graphMaxNodes, "max-nodes", 100, "Visited-node cap")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "Print the subgraph as JSON")

	graphCmd.AddCommand(graphStatsCmd)
	rootCmd.AddCommand(serveCmd, ingestCmd, queryCmd, graphCmd, statusCmd, versionCmd)
}
