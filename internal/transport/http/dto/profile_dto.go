package dto

import (
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
)

type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Bio          string    `json:"bio"`
	PhotoURLs    []string  `json:"photo_urls"`
	Interests    []string  `json:"interests"`
	Online       bool      `json:"online"`
	LastActiveAt time.Time `json:"last_active_at"`
	AgeMin       int       `json:"age_min"`
	AgeMax       int       `json:"age_max"`
}

type ProfileUpdateRequest struct {
	DisplayName *string  `json:"display_name"`
	Bio         *string  `json:"bio"`
	PhotoURLs   []string `json:"photo_urls"`
	Interests   []string `json:"interests"`
	AgeMin      *int     `json:"age_min"`
	AgeMax      *int     `json:"age_max"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func MapUser(user model.User) UserResponse {
	photos := user.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}

	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Age:          user.Age,
		Gender:       user.Gender,
		Bio:          user.Bio,
		PhotoURLs:    photos,
		Interests:    interests,
		Online:       user.Online,
		LastActiveAt: user.LastActiveAt,
		AgeMin:       user.AgeMin,
		AgeMax:       user.AgeMax,
	}
}

func MapUsers(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, MapUser(user))
	}
	return out
}
