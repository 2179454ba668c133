package models

// ScoreBreakdown explains how a suggestion score was produced. It is
// returned alongside the score so the UI can render labels like
// "3 mutual friends" or "Same company".
type ScoreBreakdown struct {
	MutualFriendCount int  `json:"mutual_friend_count"`
	SharedSkillCount  int  `json:"shared_skill_count"`
	SameCompany       bool `json:"same_company"`
	SameLocation      bool `json:"same_location"`
	Score             int  `json:"score"`
}

// SuggestionCandidate is one ranked "people you may know" entry. It is
// derived per ranking request and lives only as long as one cache entry.
type SuggestionCandidate struct {
	Profile ProfileSummary `json:"profile"`
	ScoreBreakdown
}
