package ai

import "context"

//go:generate mockgen -source=port.go -destination=mock/client_mock.go -package=mock

// Client is the finding oracle. It returns the provider's raw text answer,
// which is expected to hold a JSON list of findings.
type Client interface {
	Analyze(ctx context.Context, code, fileName string) (string, error)
}
