package dto

type SwipeRequest struct {
	TargetID string `json:"target_id"`
	Decision string `json:"decision"`
}

type SwipeResponse struct {
	OK           bool           `json:"ok"`
	MatchCreated bool           `json:"match_created"`
	Match        *MatchResponse `json:"match,omitempty"`
}
