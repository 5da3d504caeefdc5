package model

import "time"

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Age          int        `json:"age"`
	Gender       string     `json:"gender"`
	Bio          string     `json:"bio"`
	PhotoURLs    []string   `json:"photo_urls"`
	Interests    []string   `json:"interests"`
	Online       bool       `json:"online"`
	LastActiveAt time.Time  `json:"last_active_at"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	AgeMin       int        `json:"age_min"`
	AgeMax       int        `json:"age_max"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
