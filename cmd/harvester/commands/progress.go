package commands

import (
	"fmt"
	"io"

	"restoharvest/internal/external/scraper"

	"github.com/spf13/cobra"
)

// progressObserver печатает ход обхода страниц для оператора
type progressObserver struct {
	w io.Writer
}

func (p *progressObserver) PageFetched(kind scraper.Kind, page, cards int) {
	fmt.Fprintf(p.w, "%s: page %d, %d cards\n", kind, page, cards)
}

func (p *progressObserver) EmptyPage(kind scraper.Kind, page, consecutive int) {
	fmt.Fprintf(p.w, "%s: page %d is empty (%d in a row)\n", kind, page, consecutive)
}

func (p *progressObserver) FetchFailed(kind scraper.Kind, err error) {
	fmt.Fprintf(p.w, "%s: fetch failed: %v\n", kind, err)
}

func (p *progressObserver) Finished(kind scraper.Kind, state scraper.State, pages int) {
	fmt.Fprintf(p.w, "%s: %s at page %d\n", kind, state, pages)
}

// progressFor возвращает наблюдателя для --progress или nil
func progressFor(cmd *cobra.Command) scraper.Observer {
	if !showProgress {
		return nil
	}
	return &progressObserver{w: cmd.ErrOrStderr()}
}
