package statussync

import (
	"context"
	"errors"
)

// Confirmation is returned instead of a mutation when a transition needs a
// human to re-assert it. Nothing is stored between the two calls.
type Confirmation struct {
	Prompt string `json:"prompt"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// gate lets dec through when it needs no confirmation or the caller already
// confirmed; otherwise it returns the confirmation to surface.
func gate(dec Decision, confirmed bool, from, to string) *Confirmation {
	if dec.Verdict != RequireConfirmation || confirmed {
		return nil
	}
	return &Confirmation{Prompt: dec.Prompt, From: from, To: to}
}

var ErrDeclined = errors.New("confirmation declined")

// Submit drives the caller side of the two-call protocol. It calls fn with
// confirmed=false; if fn asks for confirmation and accept agrees, it calls fn
// again with confirmed=true. A declined prompt returns ErrDeclined.
func Submit[T any](
	ctx context.Context,
	fn func(ctx context.Context, confirmed bool) (T, *Confirmation, error),
	accept func(Confirmation) bool,
) (T, error) {
	res, conf, err := fn(ctx, false)
	if err != nil || conf == nil {
		return res, err
	}
	if !accept(*conf) {
		var zero T
		return zero, ErrDeclined
	}
	res, conf, err = fn(ctx, true)
	if err != nil {
		return res, err
	}
	if conf != nil {
		var zero T
		return zero, errors.New("confirmation requested twice for the same request")
	}
	return res, nil
}
