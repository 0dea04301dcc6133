package agent

// Route is the Retry Gate's decision after classification.
type Route int

const (
	RouteReport Route = iota
	RouteFetch
)

func (r Route) String() string {
	switch r {
	case RouteFetch:
		return "fetch_news"
	default:
		return "concise_report"
	}
}

// Gate decides whether to refetch or write the report. Favorable labels always
// finish; anything else refetches until MaxFetchAttempts attempts have been made.
func Gate(s State) Route {
	if s.Sentiment.Favorable() {
		return RouteReport
	}
	if s.Attempts < MaxFetchAttempts {
		return RouteFetch
	}
	return RouteReport
}
