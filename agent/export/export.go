// Package export ships finished onboarding records to the downstream
// platform through QStash, so delivery survives receiver downtime.
package export

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	qstashx "github.com/kaiyuanlo/onboarding-copilot/pkg/qstash"
)

type QStashExporter struct {
	client      *qstashx.Client
	destination string
}

// NewQStashExporter publishes export payloads to the destination URL via
// QStash.
func NewQStashExporter(client *qstashx.Client, destination string) (*QStashExporter, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("export destination is required")
	}
	return &QStashExporter{client: client, destination: destination}, nil
}

func (e *QStashExporter) Export(ctx context.Context, payload map[string]any) error {
	return e.client.PublishJSON(ctx, e.destination, payload)
}

var _ contractx.Exporter = (*QStashExporter)(nil)
