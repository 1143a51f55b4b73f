package api

import (
	"errors"
	"fmt"
)

// Error texts returned to API clients
const (
	msgMissingConfig    = "Missing 'config' field in request body"
	msgValidationFailed = "Configuration validation failed"
	msgGenerated        = "RTL generation successful"
	msgFilesNotFound    = "Generated files not found"
	msgNotConfigured    = "RTL generation is not configured"
)

var errMissingConfig = errors.New(msgMissingConfig)

// configRequest is the body accepted by /api/validate and /api/generate.
// Config is YAML text or an already parsed document.
type configRequest struct {
	Config any
	JobID  string
}

// parseConfigRequest extracts the config and optional job_id from a decoded
// JSON body
func parseConfigRequest(body any) (*configRequest, error) {
	fields, ok := body.(map[string]any)
	if !ok {
		return nil, errMissingConfig
	}
	config, ok := fields["config"]
	if !ok {
		return nil, errMissingConfig
	}

	req := &configRequest{Config: config}
	switch id := fields["job_id"].(type) {
	case nil:
	case string:
		req.JobID = id
	default:
		return nil, fmt.Errorf("'job_id' must be a string")
	}
	return req, nil
}

// validationResponse is the body of POST /api/validate
type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// generateResponse is the body of POST /api/generate
type generateResponse struct {
	Success          bool     `json:"success"`
	JobID            string   `json:"job_id,omitempty"`
	OutputPath       string   `json:"output_path,omitempty"`
	ZipPath          string   `json:"zip_path,omitempty"`
	ArtifactURI      string   `json:"artifact_uri,omitempty"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	Stdout           *string  `json:"stdout,omitempty"`
	Stderr           *string  `json:"stderr,omitempty"`
}
