package response

import (
	"encoding/json"
	"io"
	"time"
)

// SuccessResponse represents a success response
type SuccessResponse struct {
	Success    bool             `json:"success"`
	Data       interface{}      `json:"data"`
	Metadata   ResponseMetadata `json:"metadata"`
	Pagination *Pagination      `json:"pagination,omitempty"`
}

// ResponseMetadata represents the metadata for responses
type ResponseMetadata struct {
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	OperationID string `json:"operationId,omitempty"`
}

// Pagination echoes the window of a listing
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit,omitempty"`
	Count  int `json:"count"`
}

func metadata(operationID string) ResponseMetadata {
	return ResponseMetadata{
		Version:     "1.0",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		OperationID: operationID,
	}
}

// Success writes data wrapped in the success envelope
func Success(w io.Writer, data interface{}, operationID string) error {
	return write(w, SuccessResponse{
		Success:  true,
		Data:     data,
		Metadata: metadata(operationID),
	})
}

// Paginated writes a listing together with its window
func Paginated(w io.Writer, data interface{}, page Pagination, operationID string) error {
	return write(w, SuccessResponse{
		Success:    true,
		Data:       data,
		Metadata:   metadata(operationID),
		Pagination: &page,
	})
}

func write(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
