package scraper

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delayer выдерживает паузу перед каждой загрузкой страницы
type Delayer interface {
	Wait(ctx context.Context) error
}

// RandomDelay ждет случайное время, равномерно распределенное в [Min, Max]
type RandomDelay struct {
	Min time.Duration
	Max time.Duration
}

// Wait блокируется до истечения паузы или отмены контекста
func (d RandomDelay) Wait(ctx context.Context) error {
	delay := d.Min
	if d.Max > d.Min {
		delay += rand.N(d.Max - d.Min + 1)
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay отключает паузы, используется в тестах
type NoDelay struct{}

// Wait только проверяет контекст
func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
