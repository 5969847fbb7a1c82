package port

import "context"

// Notifier delivers out-of-band messages such as password reset codes.
type Notifier interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
