// File path: internal/api/types.go
package api

import (
	"github.com/nicodishanthj/ecomqa/internal/agent"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	*agent.Answer
	ChartURL string `json:"chart_url,omitempty"`
}

type schemaResponse struct {
	Tables      []sqlite.Table `json:"tables"`
	Description string         `json:"description"`
}

type reloadResponse struct {
	Report *sqlite.LoadReport `json:"report"`
	Error  string             `json:"error,omitempty"`
}
