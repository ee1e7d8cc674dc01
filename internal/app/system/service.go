// Package system defines the lifecycle contract shared by long-running
// application components and a manager that starts and stops them in order.
package system

import "context"

// Service is a lifecycle-managed component. Background workers implement this
// interface so the application can bring them up and tear them down
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for components that have no background work
// but should still appear in the lifecycle registry.
type NoopService struct {
	ServiceName string
}

func (s NoopService) Name() string                { return s.ServiceName }
func (s NoopService) Start(context.Context) error { return nil }
func (s NoopService) Stop(context.Context) error  { return nil }
