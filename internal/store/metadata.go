package store

import (
	"database/sql"
)

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RecordLLMModel stores the model name the server was last started with;
// the export command includes it in result dumps.
func (s *Store) RecordLLMModel(name string) error {
	return s.SetMetadata("llm_model", name)
}

// LastLLMModel returns the recorded model name, if any.
func (s *Store) LastLLMModel() (string, error) {
	return s.GetMetadata("llm_model")
}
