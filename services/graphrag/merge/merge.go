// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package merge collapses duplicate entities and relationships before they
// reach the graph. Both merges are deterministic (first-occurrence order)
// and idempotent: running them twice yields the same result as once.
package merge

import (
	"sort"
	"strings"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// MergeEntities collapses entities whose names are equal ignoring case, or
// where one name contains the other ignoring case. Matching chains
// transitively within one pass: "Acme Corp" and "Acme Inc" end up together
// when "Acme" links them, even though neither contains the other. Each
// group keeps the name and type of its earliest member; descriptions of the
// whole group are joined with "; " in input order, empty ones skipped. An
// entity with no duplicates passes through untouched, keeping its chunk and
// document provenance; a merged record carries none, since it no longer
// belongs to a single chunk.
func MergeEntities(entities []model.Entity) []model.Entity {
	if len(entities) == 0 {
		return nil
	}
	merged := make([]model.Entity, 0, len(entities))
	used := make([]bool, len(entities))
	for i := range entities {
		if used[i] {
			continue
		}
		used[i] = true
		group := []int{i}
		// Worklist closure: every member pulls in later entities whose
		// names match its own, until no member adds anything new.
		for cursor := 0; cursor < len(group); cursor++ {
			memberName := strings.ToLower(entities[group[cursor]].Name)
			for j := i + 1; j < len(entities); j++ {
				if used[j] {
					continue
				}
				if namesMatch(memberName, strings.ToLower(entities[j].Name)) {
					used[j] = true
					group = append(group, j)
				}
			}
		}
		if len(group) == 1 {
			merged = append(merged, entities[i])
			continue
		}
		sort.Ints(group)
		members := make([]model.Entity, len(group))
		for k, idx := range group {
			members[k] = entities[idx]
		}
		merged = append(merged, model.Entity{
			Name:        entities[i].Name,
			Type:        entities[i].Type,
			Description: joinDescriptions(descriptionsOfEntities(members)),
		})
	}
	return merged
}

func namesMatch(a, b string) bool {
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// MergeRelationships collapses relationships sharing the same ordered
// (source, target) pair ignoring case. Direction is significant: (A,B) and
// (B,A) never merge. The earliest relationship of a group supplies source,
// target and relation label; descriptions are joined with "; ". Groups
// appear in first-occurrence order.
func MergeRelationships(relationships []model.Relationship) []model.Relationship {
	if len(relationships) == 0 {
		return nil
	}
	type pair struct {
		source string
		target string
	}
	groups := make(map[pair][]model.Relationship)
	order := make([]pair, 0, len(relationships))
	for _, rel := range relationships {
		key := pair{strings.ToLower(rel.Source), strings.ToLower(rel.Target)}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rel)
	}

	merged := make([]model.Relationship, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		first := group[0]
		merged = append(merged, model.Relationship{
			Source:      first.Source,
			Target:      first.Target,
			Relation:    first.Relation,
			Description: joinDescriptions(descriptionsOfRelationships(group)),
		})
	}
	return merged
}

func descriptionsOfEntities(group []model.Entity) []string {
	out := make([]string, 0, len(group))
	for _, entity := range group {
		if entity.Description != "" {
			out = append(out, entity.Description)
		}
	}
	return out
}

func descriptionsOfRelationships(group []model.Relationship) []string {
	out := make([]string, 0, len(group))
	for _, rel := range group {
		if rel.Description != "" {
			out = append(out, rel.Description)
		}
	}
	return out
}

func joinDescriptions(descriptions []string) string {
	return strings.Join(descriptions, "; ")
}
