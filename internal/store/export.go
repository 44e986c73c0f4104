package store

import (
	"fmt"

	"studydeck/internal/model"
)

// ExportUserResults builds an export-ready dump of one user's test history.
func (s *Store) ExportUserResults(username string) (*model.ResultsExport, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %q not found", username)
	}

	results, err := s.ListTestResults(user.ID, ResultFilter{})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	llmModel, err := s.LastLLMModel()
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	return &model.ResultsExport{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		LLMModel:    llmModel,
		NumResults:  len(results),
		Results:     results,
	}, nil
}
