package delivery

import "context"

// Sender dispatches finished guidance to a recipient. Implementations must
// return a non-nil error on failure so the caller can distinguish a completed
// send from one that needs its claim reverted.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
