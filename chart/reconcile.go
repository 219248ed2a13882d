package chart

import "time"

// Merge folds a batch of candidate artifacts into an existing ordered
// collection. Each valid candidate either refreshes an existing entry in
// place or is appended as new; invalid candidates are skipped. Merge is a
// pure function over its inputs: the returned slice is freshly allocated and
// neither argument is mutated.
//
// A candidate refreshes the first existing artifact matched by, in priority
// order:
//  1. derived id equality (normalized title plus type)
//  2. title equality, case-insensitive and whitespace-collapsed, regardless
//     of type
//  3. structural similarity (see structuralMatch)
//
// Refreshed entries keep their original position, id and creation time and
// take everything else from the candidate with a bumped update time.
// Appended entries get a freshly derived id and both times set to now.
func Merge(existing, candidates []Artifact) (merged []Artifact, updated, added int) {
	now := time.Now()

	merged = make([]Artifact, len(existing))
	copy(merged, existing)

	for _, candidate := range candidates {
		if err := candidate.Validate(); err != nil {
			continue
		}
		idx := findMatch(merged, candidate)
		if idx >= 0 {
			prev := merged[idx]
			candidate.ID = prev.ID
			if candidate.ID == "" {
				candidate.ID = DeriveID(prev.Title, prev.Type)
			}
			candidate.CreatedAt = prev.CreatedAt
			candidate.UpdatedAt = now
			merged[idx] = candidate
			updated++
			continue
		}
		if candidate.ID == "" {
			candidate.ID = DeriveID(candidate.Title, candidate.Type)
		}
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		merged = append(merged, candidate)
		added++
	}
	return merged, updated, added
}

// findMatch returns the index of the first artifact the candidate should
// refresh, or -1 to append. Each rule is tried across the whole collection
// before falling through to the next, so a key match anywhere beats a title
// match earlier in the sequence.
func findMatch(artifacts []Artifact, candidate Artifact) int {
	candidateID := candidate.ID
	if candidateID == "" {
		candidateID = DeriveID(candidate.Title, candidate.Type)
	}
	for i, a := range artifacts {
		id := a.ID
		if id == "" {
			id = DeriveID(a.Title, a.Type)
		}
		if id == candidateID {
			return i
		}
	}

	title := normalizeTitle(candidate.Title)
	for i, a := range artifacts {
		if normalizeTitle(a.Title) == title {
			return i
		}
	}

	for i, a := range artifacts {
		if structuralMatch(a, candidate) {
			return i
		}
	}
	return -1
}

// structuralMatch is the similarity heuristic that catches "regenerate this
// chart with fresh numbers" requests where the title was reworded: the same
// type with either the identical label sequence or the same number of data
// points. The rule is deliberately kept in one place so it can be tuned or
// replaced without touching the merge flow; it can false-merge two unrelated
// charts that share a type and point count.
func structuralMatch(a, candidate Artifact) bool {
	if a.Type != candidate.Type {
		return false
	}
	return labelsEqual(a.Labels, candidate.Labels) || len(a.Data) == len(candidate.Data)
}

func labelsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
