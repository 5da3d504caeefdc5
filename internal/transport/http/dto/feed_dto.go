package dto

type FeedResponse struct {
	Items []UserResponse `json:"items"`
}
