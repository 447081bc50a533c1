package scraper

import (
	"context"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// State - состояние обхода страниц
type State int

const (
	// StateActive - обход продолжается
	StateActive State = iota
	// StateExhausted - страницы закончились, успешное завершение
	StateExhausted
	// StateAborted - обход прерван ошибкой или потребитель перестал читать страницы
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Cursor - текущая позиция обхода
type Cursor struct {
	// Path - относительный путь следующей загрузки
	Path string
	// Page - порядковый номер страницы с 1, только для отчетов
	Page int
	// EmptyPages - число подряд пустых загрузок
	EmptyPages int
}

// Page - одна непустая страница с найденными карточками
type Page struct {
	Number int
	Path   string
	Doc    *goquery.Document
	Cards  []*goquery.Selection
}

// WalkerConfig задает локаторы и политику обхода
type WalkerConfig struct {
	Kind            Kind
	Card            Locator
	NextPage        Locator
	EmptyMarker     Locator
	EmptyPageBudget int
	Delayer         Delayer
	Observer        Observer
	Logger          *zap.Logger
}

// Walker проходит по страницам, переходя по ссылке "следующая страница".
// Обход одноразовый: повторный запуск требует нового Walker с первой страницы.
type Walker struct {
	fetcher   Fetcher
	config    WalkerConfig
	startPath string
	cursor    Cursor
	state     State
	started   bool
}

// NewWalker создает обход, начинающийся с startPath
func NewWalker(fetcher Fetcher, startPath string, config WalkerConfig) *Walker {
	if config.EmptyPageBudget <= 0 {
		config.EmptyPageBudget = DefaultEmptyPageBudget
	}
	if config.Delayer == nil {
		config.Delayer = NoDelay{}
	}
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Walker{
		fetcher:   fetcher,
		config:    config,
		startPath: startPath,
		cursor:    Cursor{Path: startPath, Page: 1},
		state:     StateActive,
	}
}

// State возвращает текущее состояние обхода
func (w *Walker) State() State {
	return w.state
}

// Pages возвращает ленивую последовательность непустых страниц.
// Последовательность конечна: она завершается на последней странице
// либо ошибкой *FetchError, *PaginationExhaustedError или ошибкой контекста.
func (w *Walker) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		if w.started {
			return
		}
		w.started = true

		log := w.config.Logger.With(zap.String("kind", string(w.config.Kind)))

		for w.state == StateActive {
			if err := w.config.Delayer.Wait(ctx); err != nil {
				w.abort(err, yield)
				return
			}

			doc, err := w.fetcher.Fetch(ctx, w.cursor.Path)
			if err != nil {
				w.config.Observer.FetchFailed(w.config.Kind, err)
				log.Warn("Failed to fetch page",
					zap.String("path", w.cursor.Path),
					zap.Int("page", w.cursor.Page),
					zap.Error(err))
				w.abort(err, yield)
				return
			}

			cards := collectCards(doc.Selection, w.config.Card)
			if len(cards) == 0 {
				if !w.config.EmptyMarker.IsZero() && w.config.EmptyMarker.Find(doc.Selection).Length() > 0 {
					log.Info("Page explicitly has no cards", zap.String("path", w.cursor.Path))
					w.finish(StateExhausted)
					return
				}

				w.cursor.EmptyPages++
				w.config.Observer.EmptyPage(w.config.Kind, w.cursor.Page, w.cursor.EmptyPages)
				log.Warn("No cards found on page",
					zap.String("path", w.cursor.Path),
					zap.Int("page", w.cursor.Page),
					zap.Int("consecutive_empty", w.cursor.EmptyPages),
					zap.Int("budget", w.config.EmptyPageBudget))

				if w.cursor.EmptyPages >= w.config.EmptyPageBudget {
					w.abort(&PaginationExhaustedError{
						StartPath:  w.startPath,
						Path:       w.cursor.Path,
						Page:       w.cursor.Page,
						EmptyPages: w.cursor.EmptyPages,
					}, yield)
					return
				}
				continue
			}

			w.cursor.EmptyPages = 0
			page := &Page{
				Number: w.cursor.Page,
				Path:   w.cursor.Path,
				Doc:    doc,
				Cards:  cards,
			}
			w.config.Observer.PageFetched(w.config.Kind, page.Number, len(cards))
			log.Info("Page harvested",
				zap.Int("page", page.Number),
				zap.Int("cards", len(cards)))

			next := w.config.NextPage.Lookup(doc.Selection)

			if !yield(page, nil) {
				log.Debug("Consumer stopped reading pages", zap.Int("page", page.Number))
				w.finish(StateAborted)
				return
			}

			if next == nil || strings.TrimSpace(*next) == "" {
				w.finish(StateExhausted)
				return
			}
			w.cursor.Path = strings.TrimSpace(*next)
			w.cursor.Page++
		}
	}
}

func (w *Walker) abort(err error, yield func(*Page, error) bool) {
	w.finish(StateAborted)
	yield(nil, err)
}

func (w *Walker) finish(state State) {
	w.state = state
	if state == StateExhausted {
		w.cursor.Path = ""
	}
	w.config.Observer.Finished(w.config.Kind, state, w.cursor.Page)
}

func collectCards(root *goquery.Selection, card Locator) []*goquery.Selection {
	found := card.Find(root)
	cards := make([]*goquery.Selection, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, s)
	})
	return cards
}
