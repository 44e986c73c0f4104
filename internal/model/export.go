package model

// ResultsExport is the top-level JSON structure for the export command.
type ResultsExport struct {
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
	LLMModel    string       `json:"llm_model,omitempty"`
	NumResults  int          `json:"num_results"`
	Results     []TestResult `json:"results"`
}
