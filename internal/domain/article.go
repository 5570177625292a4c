package domain

import "time"

type Article struct {
	ExternalID   string
	Title        string
	Subtitle     *string
	Body         string
	CanonicalURL string
	PublishedAt  time.Time
}
