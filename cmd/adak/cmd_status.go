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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// runStatus prints one document's processing record, or counts by state
// when no document id is given.
func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := buildService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	if len(args) == 0 {
		counts, err := svc.DocStatusCounts()
		if err != nil {
			return err
		}
		fmt.Println(headingStyle.Render("documents by status"))
		for _, st := range []model.DocStatus{
			model.DocStatusPending, model.DocStatusProcessing,
			model.DocStatusProcessed, model.DocStatusFailed,
		} {
			fmt.Printf("  %s %d\n", labelStyle.Render(fmt.Sprintf("%-11s", string(st))), counts[st])
		}
		return nil
	}

	docID := args[0]
	st, found, err := svc.DocStatus(docID)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println(warnStyle.Render("document not found: ") + docID)
		return nil
	}

	fmt.Println(headingStyle.Render("document " + docID))
	fmt.Println(labelStyle.Render("  status:   ") + string(st.Status))
	fmt.Println(labelStyle.Render("  summary:  ") + st.ContentSummary)
	fmt.Println(labelStyle.Render("  length:   ") + fmt.Sprint(st.ContentLength))
	fmt.Println(labelStyle.Render("  chunks:   ") + fmt.Sprint(st.ChunksCount))
	fmt.Println(labelStyle.Render("  created:  ") + st.CreatedAt.Format(time.RFC3339))
	fmt.Println(labelStyle.Render("  updated:  ") + st.UpdatedAt.Format(time.RFC3339))
	if st.FilePath != "" {
		fmt.Println(labelStyle.Render("  source:   ") + st.FilePath)
	}
	if st.Error != "" {
		fmt.Println(errorStyle.Render("  error:    ") + st.Error)
	}
	return nil
}
