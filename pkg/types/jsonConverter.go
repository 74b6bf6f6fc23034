package types

import (
	"encoding/json"
	"fmt"
)

func (m ScrollManifest) MarshalJSON() ([]byte, error) {
	chunks := make([]map[string]interface{}, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = map[string]interface{}{
			"index":         c.Index,
			"transactionId": c.TxID,
			"digest":        c.Digest.String(),
		}
	}

	return json.MarshalIndent(&struct {
		ScrollID    string                   `json:"scrollId"`
		Title       string                   `json:"title"`
		Author      string                   `json:"author"`
		AuthorID    string                   `json:"authorId"`
		TotalChunks uint32                   `json:"totalChunks"`
		Chunks      []map[string]interface{} `json:"chunks"`
		PreviewText string                   `json:"previewText"`
		CreatedAt   int64                    `json:"createdAt"`
		Version     uint32                   `json:"version"`
	}{
		ScrollID:    m.ScrollID.String(),
		Title:       m.Title,
		Author:      m.Author,
		AuthorID:    m.AuthorID,
		TotalChunks: m.TotalChunks,
		Chunks:      chunks,
		PreviewText: m.PreviewText,
		CreatedAt:   m.CreatedAt.UnixNano(),
		Version:     m.Version,
	}, "", "    ")
}

func (g Glyph) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Index         uint32 `json:"index"`
		TotalCount    uint32 `json:"totalCount"`
		Digest        string `json:"digest"`
		Status        string `json:"status"`
		TransactionID string `json:"transactionId,omitempty"`
		LastError     string `json:"lastError,omitempty"`
	}{
		Index:         g.Index,
		TotalCount:    g.TotalCount,
		Digest:        g.Digest.String(),
		Status:        g.Status.String(),
		TransactionID: g.TxID,
		LastError:     g.LastError,
	})
}

func (m *ScrollManifest) PrettyPrint() {
	jsonBytes, err := m.MarshalJSON()
	if err != nil {
		fmt.Println("Error marshalling ScrollManifest to JSON:", err)
		return
	}
	fmt.Println(string(jsonBytes))
}
