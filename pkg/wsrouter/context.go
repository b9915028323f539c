package wsrouter

import "context"

type ctxKey string

const (
	eventKey ctxKey = "event"
)

func withEvent(ctx context.Context, event string) context.Context {
	return context.WithValue(ctx, eventKey, event)
}

// GetEventFromCtx returns the name of the event being dispatched, or "" outside a handler.
func GetEventFromCtx(ctx context.Context) string {
	event, _ := ctx.Value(eventKey).(string)
	return event
}
