// Package service contains the business logic layered between HTTP handlers
// and repositories.
package service

import (
	"strings"

	"quad/internal/models"
)

// Fixed scoring weights. Deliberately not configurable so that a ranking is
// reproducible from the same graph snapshot.
const (
	mutualFriendWeight = 3
	sharedSkillWeight  = 2
	sameCompanyBonus   = 5
	sameLocationBonus  = 2
)

// ScoreCandidate computes the suggestion score for one candidate. It is a
// pure function over pre-fetched snapshots: same input, same output.
//
// Mutual friends and shared skills contribute per match; company and
// location matches contribute a flat bonus each. Company and location
// compare case-insensitively and only when both sides are non-empty; skill
// names compare case-sensitively.
func ScoreCandidate(
	viewer, candidate *models.User,
	viewerFriends, candidateFriends map[uint]struct{},
	viewerSkills, candidateSkills map[string]struct{},
) models.ScoreBreakdown {
	var b models.ScoreBreakdown

	for id := range viewerFriends {
		if _, ok := candidateFriends[id]; ok {
			b.MutualFriendCount++
		}
	}

	for name := range viewerSkills {
		if _, ok := candidateSkills[name]; ok {
			b.SharedSkillCount++
		}
	}

	b.SameCompany = viewer.Company != "" && candidate.Company != "" &&
		strings.EqualFold(viewer.Company, candidate.Company)
	b.SameLocation = viewer.Location != "" && candidate.Location != "" &&
		strings.EqualFold(viewer.Location, candidate.Location)

	b.Score = mutualFriendWeight*b.MutualFriendCount + sharedSkillWeight*b.SharedSkillCount
	if b.SameCompany {
		b.Score += sameCompanyBonus
	}
	if b.SameLocation {
		b.Score += sameLocationBonus
	}

	return b
}
