// Package sinks delivers publish-outcome events to downstream systems
// (webhooks, queues, topics) so integrations can react without polling the
// datastore.
package sinks

import "context"

// Sink sends outcome events to one downstream destination.
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, evt Event) error
}

// Logger defines the logging surface sinks rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
