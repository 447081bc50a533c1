package scraper

import (
	"errors"
	"fmt"
)

// FetchError возвращается при сбое транспорта или HTTP статусе вне 2xx.
// Fetcher не повторяет запрос: решение о повторе принимается уровнем выше.
type FetchError struct {
	Path       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PaginationExhaustedError возвращается, когда карточки не найдены
// на протяжении всего бюджета пустых страниц подряд
type PaginationExhaustedError struct {
	StartPath  string
	Path       string
	Page       int
	EmptyPages int
}

func (e *PaginationExhaustedError) Error() string {
	return fmt.Sprintf("no cards found on %s (page %d) after %d consecutive empty fetches, harvest started at %s",
		e.Path, e.Page, e.EmptyPages, e.StartPath)
}

// IsFetchError проверяет, вызвана ли ошибка сбоем загрузки страницы
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsPaginationExhausted проверяет, прерван ли обход из-за пустых страниц
func IsPaginationExhausted(err error) bool {
	var target *PaginationExhaustedError
	return errors.As(err, &target)
}
