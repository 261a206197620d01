package exa

// Contents selects which page contents Exa returns with each result.
type Contents struct {
	Text       bool `json:"text,omitempty"`
	Highlights bool `json:"highlights,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query              string   `json:"query"`
	NumResults         int      `json:"numResults,omitempty"`
	Type               string   `json:"type,omitempty"`
	StartPublishedDate string   `json:"startPublishedDate,omitempty"`
	IncludeDomains     []string `json:"includeDomains,omitempty"`
	ExcludeDomains     []string `json:"excludeDomains,omitempty"`
	Contents           Contents `json:"contents"`
}

// Result is one search hit.
type Result struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

type searchResponse struct {
	RequestID string   `json:"requestId"`
	Results   []Result `json:"results"`
}
