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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// runQuery answers one question and prints the answer.
func runQuery(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	mode, err := model.ParseQueryMode(queryMode)
	if err != nil {
		return err
	}
	topK := queryTopK
	if topK <= 0 {
		topK = config.Query.TopK
	}

	svc, err := buildService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	answer, err := svc.Query(context.Background(), question, mode, topK)
	if err != nil {
		return err
	}

	fmt.Println(labelStyle.Render("mode: ") + string(mode))
	fmt.Println(headingStyle.Render("answer"))
	fmt.Println(answer)
	return nil
}
