package model

import "time"

// CandidateSource is one document returned by the search provider
type CandidateSource struct {
	URL            string     `json:"url"`                     // Unique within a retrieval batch
	Title          string     `json:"title"`                   // Page title as reported by the provider
	Content        string     `json:"content"`                 // Cleaned snippet, truncated
	RelevanceScore float64    `json:"relevanceScore"`          // Provider rank mapped to (0,1], descending
	PublishedDate  *time.Time `json:"publishedDate,omitempty"` // When the provider knows it
}

// CategorizedSource is a candidate source labelled by the analyzer
type CategorizedSource struct {
	CandidateSource
	Relevance Relevance `json:"relevance"`
}
