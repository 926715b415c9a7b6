package extractor

import (
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// ClientOption overrides how the underlying GCP client is constructed;
// tests use this to avoid touching real credentials.
type ClientOption func(*clientOptionState)

type clientOptionState struct {
	extra []option.ClientOption
}

// WithClientOptions appends raw google.golang.org/api/option values,
// primarily for tests that need option.WithoutAuthentication / a fake
// endpoint.
func WithClientOptions(opts ...option.ClientOption) ClientOption {
	return func(s *clientOptionState) { s.extra = append(s.extra, opts...) }
}

func resolveClientOptions(opts ...ClientOption) ([]option.ClientOption, error) {
	state := &clientOptionState{}
	for _, o := range opts {
		o(state)
	}
	if len(state.extra) > 0 {
		return state.extra, nil
	}

	if raw := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}, nil
	}
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}, nil
	}
	return nil, fmt.Errorf("extractor: no GCP credentials configured (set GOOGLE_APPLICATION_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS)")
}
