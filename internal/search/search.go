package search

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
	StageID     string `json:"stageId"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
}

// Query describes a task search request.
type Query struct {
	Text      string
	ProjectID string
	Limit     int
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	ProjectID string `json:"projectId"`
	StageID   string `json:"stageId"`
	Status    string `json:"status"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
