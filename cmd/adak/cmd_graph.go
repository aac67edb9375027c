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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runGraph prints a bounded subgraph, or the whole graph when no start
// entity is given.
func runGraph(cmd *cobra.Command, args []string) error {
	svc, err := buildService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	result := svc.Subgraph(graphStart, graphMaxDepth, graphMaxNodes)

	if graphJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if graphStart != "" && len(result.Nodes) == 0 {
		fmt.Println(warnStyle.Render("entity not found: ") + graphStart)
		return nil
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("nodes (%d)", len(result.Nodes))))
	for _, n := range result.Nodes {
		line := "  • " + n.Label
		if t := n.Attrs["type"]; t != "" {
			line += dimStyle.Render("  [" + t + "]")
		}
		fmt.Println(line)
	}
	fmt.Println(headingStyle.Render(fmt.Sprintf("edges (%d)", len(result.Edges))))
	for _, e := range result.Edges {
		line := "  • " + e.Source + " -> " + e.Target
		if r := e.Attrs["relation"]; r != "" {
			line += dimStyle.Render("  (" + r + ")")
		}
		fmt.Println(line)
	}
	return nil
}

// runGraphStats prints entity/relationship counts and a name sample.
func runGraphStats(cmd *cobra.Command, args []string) error {
	svc, err := buildService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats := svc.Statistics()
	fmt.Println(labelStyle.Render("entities:      ") + fmt.Sprint(stats.TotalEntities))
	fmt.Println(labelStyle.Render("relationships: ") + fmt.Sprint(stats.TotalRelationships))
	if len(stats.EntityNames) > 0 {
		fmt.Println(headingStyle.Render("sample"))
		for _, name := range stats.EntityNames {
			fmt.Println("  • " + name)
		}
	}
	return nil
}
