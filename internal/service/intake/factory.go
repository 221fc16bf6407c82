package intake

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, Event) (string, error)

type actionFactory struct {
	byType map[string]actionFunc
}

func newActionFactory(onCreated, onCancelled actionFunc) *actionFactory {
	return &actionFactory{
		byType: map[string]actionFunc{
			"created":   onCreated,
			"requested": onCreated,
			"cancelled": onCancelled,
			"canceled":  onCancelled,
			"withdrawn": onCancelled,
		},
	}
}

func (f *actionFactory) get(eventType string) (actionFunc, bool) {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	fn, ok := f.byType[eventType]
	return fn, ok
}
