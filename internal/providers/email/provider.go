package email

import "context"

// Provider is the delivery transport. A timed-out or failed send surfaces as
// an error; retry policy lives with the caller.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}
