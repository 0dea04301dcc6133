package agent

import "strings"

// MaxFetchAttempts bounds how many times a single run may hit the news source.
const MaxFetchAttempts = 3

// Sentiment is the classifier's label for a summary. Labels outside the known
// set are kept as returned and treated as unfavorable.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment normalizes a raw label.
func ParseSentiment(label string) Sentiment {
	return Sentiment(strings.ToLower(strings.TrimSpace(label)))
}

// Favorable reports whether the label lets the run finish without refetching.
func (s Sentiment) Favorable() bool {
	return s == SentimentPositive || s == SentimentMixed
}

// State is the record threaded through one workflow run.
type State struct {
	Topic      string
	News       string
	Sources    []string
	Summary    string
	Sentiment  Sentiment
	FetchCount int
	Attempts   int
	Concise    string
}

// NewState seeds a run for topic.
func NewState(topic string) State {
	return State{Topic: topic}
}

// Update is a partial change returned by a step. Nil fields are left untouched.
// Sources is replaced together with News.
type Update struct {
	News       *string
	Sources    []string
	Summary    *string
	Sentiment  *Sentiment
	FetchCount *int
	Attempts   *int
	Concise    *string
}

// Apply returns a copy of s with u merged in.
func (s State) Apply(u Update) State {
	if u.News != nil {
		s.News = *u.News
		s.Sources = u.Sources
	}
	if u.Summary != nil {
		s.Summary = *u.Summary
	}
	if u.Sentiment != nil {
		s.Sentiment = *u.Sentiment
	}
	if u.FetchCount != nil && *u.FetchCount >= s.FetchCount {
		s.FetchCount = *u.FetchCount
	}
	if u.Attempts != nil && *u.Attempts >= s.Attempts {
		s.Attempts = *u.Attempts
	}
	if u.Concise != nil {
		s.Concise = *u.Concise
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}
