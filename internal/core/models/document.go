package models

// Document is an uploaded file the server has indexed (or is indexing).
type Document struct {
	ID          ID        `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	FileSize    int64     `json:"file_size"`
	ChunkCount  int       `json:"chunk_count"`
	Processed   bool      `json:"processed"`
	CreatedAt   Timestamp `json:"created_at"`
}

// UploadResponse is returned by POST /documents/upload.
type UploadResponse struct {
	Message  string   `json:"message,omitempty"`
	Document Document `json:"document"`
}

// DocumentStats is returned by GET /documents/stats.
type DocumentStats struct {
	TotalDocuments     int   `json:"total_documents"`
	ProcessedDocuments int   `json:"processed_documents"`
	TotalChunks        int   `json:"total_chunks"`
	TotalSize          int64 `json:"total_size"`
}

// ModelStatus is returned by GET /api/model/status.
type ModelStatus struct {
	Loaded    bool   `json:"loaded"`
	Loading   bool   `json:"loading,omitempty"`
	ModelName string `json:"model_name,omitempty"`
	Message   string `json:"message,omitempty"`
}
