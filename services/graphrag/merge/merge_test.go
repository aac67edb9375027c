// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// TestMergeEntitiesCaseInsensitive verifies name matching ignores case and
// the earliest spelling wins.
func TestMergeEntitiesCaseInsensitive(t *testing.T) {
	merged := MergeEntities([]model.Entity{
		{Name: "Ada Lovelace", Type: "person", Description: "mathematician"},
		{Name: "ADA LOVELACE", Type: "person", Description: "first programmer"},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "Ada Lovelace", merged[0].Name)
	assert.Equal(t, "mathematician; first programmer", merged[0].Description)
}

// TestMergeEntitiesContainment verifies a name containing another name
// joins its group, as in Acme / Acme Corp.
func TestMergeEntitiesContainment(t *testing.T) {
	merged := MergeEntities([]model.Entity{
		{Name: "Acme", Type: "org", Description: "a company"},
		{Name: "Acme Corp", Type: "org", Description: "maker of widgets"},
		{Name: "Acme Inc", Type: "org", Description: "holding entity"},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "Acme", merged[0].Name)
	assert.Equal(t, "org", merged[0].Type)
	assert.Equal(t, "a company; maker of widgets; holding entity", merged[0].Description)
}

// TestMergeEntitiesTransitiveChain verifies matching chains through
// intermediate names: "Acme" links "Acme Corp" and "Acme Inc" into one
// group even though those two do not contain each other.
func TestMergeEntitiesTransitiveChain(t *testing.T) {
	merged := MergeEntities([]model.Entity{
		{Name: "Acme Corp", Type: "org", Description: "widgets"},
		{Name: "Acme Inc", Type: "org", Description: "holdings"},
		{Name: "Acme", Type: "org", Description: "the brand"},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "Acme Corp", merged[0].Name)
	assert.Equal(t, "org", merged[0].Type)
	// Descriptions join in input order, not discovery order.
	assert.Equal(t, "widgets; holdings; the brand", merged[0].Description)

	// Without the linking name the two corporate entities stay apart.
	separate := MergeEntities([]model.Entity{
		{Name: "Acme Corp", Type: "org", Description: "widgets"},
		{Name: "Acme Inc", Type: "org", Description: "holdings"},
	})
	require.Len(t, separate, 2)
}

// TestMergeEntitiesProvenance verifies singles keep chunk/document ids and
// merged groups drop them.
func TestMergeEntitiesProvenance(t *testing.T) {
	merged := MergeEntities([]model.Entity{
		{Name: "Solo", Type: "person", Description: "unique", ChunkID: "d_chunk_0", DocID: "d"},
		{Name: "Twin", Type: "person", Description: "first", ChunkID: "d_chunk_1", DocID: "d"},
		{Name: "twin", Type: "person", Description: "second", ChunkID: "d_chunk_2", DocID: "d"},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "d_chunk_0", merged[0].ChunkID)
	assert.Equal(t, "d", merged[0].DocID)
	assert.Empty(t, merged[1].ChunkID)
	assert.Empty(t, merged[1].DocID)
}

// TestMergeEntitiesSkipsEmptyDescriptions verifies blank descriptions do
// not produce dangling separators.
func TestMergeEntitiesSkipsEmptyDescriptions(t *testing.T) {
	merged := MergeEntities([]model.Entity{
		{Name: "X", Description: ""},
		{Name: "x", Description: "only one"},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "only one", merged[0].Description)
}

// TestMergeEntitiesIdempotent verifies a second merge pass changes nothing.
func TestMergeEntitiesIdempotent(t *testing.T) {
	input := []model.Entity{
		{Name: "Acme", Description: "a"},
		{Name: "Acme Corp", Description: "b"},
		{Name: "Widgets Ltd", Description: "c"},
		{Name: "widgets ltd", Description: "d"},
	}
	once := MergeEntities(input)
	twice := MergeEntities(once)
	assert.Equal(t, once, twice)
}

// TestMergeRelationshipsGroupsByPair verifies grouping on the ordered
// lowercased pair while preserving the first spelling and label.
func TestMergeRelationshipsGroupsByPair(t *testing.T) {
	merged := MergeRelationships([]model.Relationship{
		{Source: "Bob", Target: "Acme", Relation: "works for", Description: "engineer"},
		{Source: "BOB", Target: "acme", Relation: "employed by", Description: "since 2020"},
		{Source: "Acme", Target: "Bob", Relation: "employs", Description: "reverse direction"},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "Bob", merged[0].Source)
	assert.Equal(t, "Acme", merged[0].Target)
	assert.Equal(t, "works for", merged[0].Relation)
	assert.Equal(t, "engineer; since 2020", merged[0].Description)
	// Opposite direction stays its own relationship.
	assert.Equal(t, "Acme", merged[1].Source)
	assert.Equal(t, "Bob", merged[1].Target)
}

// TestMergeRelationshipsSinglePassThrough verifies a lone relationship is
// returned unchanged.
func TestMergeRelationshipsSinglePassThrough(t *testing.T) {
	input := []model.Relationship{
		{Source: "A", Target: "B", Relation: "linked", Description: "only"},
	}
	merged := MergeRelationships(input)
	require.Len(t, merged, 1)
	assert.Equal(t, input[0], merged[0])
}

// TestMergeRelationshipsIdempotent verifies a second merge pass changes
// nothing.
func TestMergeRelationshipsIdempotent(t *testing.T) {
	input := []model.Relationship{
		{Source: "A", Target: "B", Relation: "r1", Description: "x"},
		{Source: "a", Target: "b", Relation: "r2", Description: "y"},
		{Source: "B", Target: "A", Relation: "r3", Description: "z"},
	}
	once := MergeRelationships(input)
	twice := MergeRelationships(once)
	assert.Equal(t, once, twice)
}

// TestMergeEmptyInputs verifies both merges accept empty input.
func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, MergeEntities(nil))
	assert.Empty(t, MergeRelationships(nil))
	assert.Empty(t, MergeEntities([]model.Entity{}))
	assert.Empty(t, MergeRelationships([]model.Relationship{}))
}
