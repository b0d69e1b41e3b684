package ai

// Recommendation is one recommended equipment with the model's reason.
type Recommendation struct {
	EquipmentID string `json:"equipment_id"`
	Reason      string `json:"reason"`
}

// RecommendationResult is the structured output of Recommender.Recommend.
type RecommendationResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Explanation     string           `json:"explanation"`
}

// StreamChunk is one piece of a streamed recommendation.
type StreamChunk struct {
	Content string
	Err     error
}

// NoCandidatesExplanation is returned when there is nothing to recommend.
const NoCandidatesExplanation = "검색 조건에 맞는 장비를 찾지 못했습니다. 다른 조건으로 다시 검색해주세요."
