package scraper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// fakeFetcher отдает заранее заданные страницы по пути.
// Для пути можно задать очередь ответов: последний ответ повторяется.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]string
	failures  map[string]error
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]string),
		failures:  make(map[string]error),
	}
}

func (f *fakeFetcher) on(path string, pages ...string) *fakeFetcher {
	f.responses[path] = append(f.responses[path], pages...)
	return f
}

func (f *fakeFetcher) fail(path string, err error) *fakeFetcher {
	f.failures[path] = err
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) (*goquery.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, path)
	if err, ok := f.failures[path]; ok {
		return nil, err
	}
	queue, ok := f.responses[path]
	if !ok || len(queue) == 0 {
		return nil, &FetchError{Path: path, URL: path, StatusCode: 404}
	}
	html := queue[0]
	if len(queue) > 1 {
		f.responses[path] = queue[1:]
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingObserver запоминает события обхода
type recordingObserver struct {
	pages      []int
	emptyPages int
	failures   int
	finalState State
	finished   int
}

func (o *recordingObserver) PageFetched(_ Kind, page int, _ int) { o.pages = append(o.pages, page) }
func (o *recordingObserver) EmptyPage(Kind, int, int)            { o.emptyPages++ }
func (o *recordingObserver) FetchFailed(Kind, error)             { o.failures++ }
func (o *recordingObserver) Finished(_ Kind, state State, _ int) {
	o.finalState = state
	o.finished++
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func parseFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(readFixture(t, name)))
	require.NoError(t, err)
	return doc
}

func newTestExtractor(t *testing.T, profile Profile) *Extractor {
	t.Helper()
	extractor, err := NewExtractor(profile, nil)
	require.NoError(t, err)
	return extractor
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

const emptyPage = `<html><body><div class="results"><p>Aucun résultat</p></div></body></html>`
