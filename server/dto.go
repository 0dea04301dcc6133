package server

type AnalyzeRequest struct {
	Topic string `json:"topic"`
}

type AnalyzeResponse struct {
	Topic       string   `json:"topic"`
	FetchCount  int      `json:"fetch_count"`
	MaxFetches  int      `json:"max_fetches"`
	Sentiment   string   `json:"sentiment"`
	Concise     string   `json:"concise"`
	ConciseHTML string   `json:"concise_html"`
	Sources     []string `json:"sources"`
	DurationMS  int64    `json:"duration_ms"`
	TotalTokens int      `json:"total_tokens"`
	TotalCost   float64  `json:"total_cost"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Node  string `json:"node,omitempty"`
}
