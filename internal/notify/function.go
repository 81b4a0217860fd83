package notify

import (
	"context"
	"fmt"

	"github.com/vbonduro/propdesk/internal/functions"
)

// Function forwards messages to the sendProblemNotification remote function.
type Function struct {
	invoker functions.Invoker
}

func NewFunction(invoker functions.Invoker) *Function {
	return &Function{invoker: invoker}
}

func (f *Function) Notify(ctx context.Context, msg Message) error {
	if _, err := f.invoker.Invoke(ctx, functions.SendProblemNotification, msg); err != nil {
		return fmt.Errorf("failed to dispatch notification: %w", err)
	}
	return nil
}
