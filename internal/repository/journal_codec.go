package repository

import (
	"encoding/json"
	"fmt"

	"tradeledger/internal/domain"
)

// decodeDocument unmarshals over a default-shaped document so keys missing from the
// stored JSON keep their default values, then backfills anything set to null
func decodeDocument(data []byte, key string, defaults domain.Defaulter) (*domain.Document, error) {
	doc := defaults.DefaultDocument(key)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode journal %s: %w", key, err)
	}
	defaults.Backfill(key, doc)
	return doc, nil
}

func encodeDocument(doc *domain.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode journal: %w", err)
	}
	return data, nil
}
