package handler

import (
	"time"

	"github.com/google/uuid"

	"orderaudit/internal/port"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// TokenRequest represents the client-credential token request body.
type TokenRequest struct {
	ClientID     string `json:"client_id" binding:"required" example:"rpa-bot"`
	ClientSecret string `json:"client_secret" binding:"required" example:"s3cret-value"`
}

// --- Response Types ---

// TokenResponse represents the issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at" example:"2025-01-15T10:30:00Z"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"audit store not reachable"`
}

// ExportListResponse lists the exports a folder run would pick up.
type ExportListResponse struct {
	FolderID string              `json:"folder_id" example:"luna-vista"`
	Exports  []port.ExportObject `json:"exports"`
}

// ArchiveResponse carries the presigned URL of an archived audit record.
type ArchiveResponse struct {
	AuditID     uuid.UUID `json:"audit_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	DownloadURL string    `json:"download_url" example:"https://bucket.s3.amazonaws.com/audit-records/550e8400.json?X-Amz-Signature=..."`
}

// Response wraps a success response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
