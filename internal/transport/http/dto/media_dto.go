package dto

type ChatImageResponse struct {
	ObjectKey string `json:"object_key"`
}

type SignedURLResponse struct {
	URL string `json:"url"`
}
