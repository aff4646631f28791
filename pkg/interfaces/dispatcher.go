package interfaces

import (
	"context"

	"portal/pkg/types"
)

// MessageDispatcher persists inbound real-time sends and fans them out
type MessageDispatcher interface {
	// Dispatch handles one message event from an authenticated connection.
	// Failures are reported to sender as error events and also returned.
	Dispatch(ctx context.Context, sender Connection, event *types.MessageEvent) error

	// FanOut pushes an already persisted message to its online recipients and
	// returns how many connections accepted it
	FanOut(ctx context.Context, message *types.Message) int
}
