package newsapi

// APIResponse represents the listing endpoint response structure.
type APIResponse struct {
	Results []Result `json:"results"`
}

// Result is one article record. The timestamp field name differs between
// deployments of the API: older ones emit "created", newer ones "published".
// Both carry unix epoch seconds.
type Result struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Subtitle  *string `json:"subtitle"`
	Body      string  `json:"body"`
	URL       string  `json:"url"`
	Published int64   `json:"published"`
	Created   int64   `json:"created"`
}

func (r Result) timestamp() int64 {
	if r.Published != 0 {
		return r.Published
	}
	return r.Created
}
