// Package datasource describes where CBOM documents come from and fetches
// them.
package datasource

import (
	"strings"
	"time"
)

type ConnectionType string

const (
	ConnectionSingle   ConnectionType = "single"
	ConnectionMultiple ConnectionType = "multiple"
	ConnectionGitHub   ConnectionType = "github"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionSingle, ConnectionMultiple, ConnectionGitHub:
		return true
	default:
		return false
	}
}

func (t ConnectionType) Label() string {
	switch t {
	case ConnectionSingle:
		return "Single file"
	case ConnectionMultiple:
		return "Multiple files"
	case ConnectionGitHub:
		return "GitHub"
	default:
		return string(t)
	}
}

type Status string

const (
	StatusActive     Status = "active"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusProcessing:
		return StatusProcessing
	case StatusError:
		return StatusError
	default:
		return StatusActive
	}
}

// Descriptor is the dashboard's view of one configured data source.
type Descriptor struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ConnectionType ConnectionType `json:"type"`
	Format         string         `json:"format"`
	LastUpdated    time.Time      `json:"lastUpdated,omitzero"`
	ServiceCount   int            `json:"serviceCount"`
	Status         Status         `json:"status"`
	LastError      string         `json:"lastError,omitempty"`
}
