package health

import "context"

// Checker проверяет доступность компонента
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc позволяет использовать функцию как Checker
type CheckerFunc func(ctx context.Context) error

// Ping вызывает f(ctx)
func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// StatusProvider отдает статус фонового компонента, например планировщика
type StatusProvider interface {
	GetStatus() map[string]interface{}
}
