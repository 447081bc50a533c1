package scraper

// Kind различает два вида обхода
type Kind string

const (
	// KindListings - обход списка ресторанов
	KindListings Kind = "listings"
	// KindReviews - обход отзывов одного ресторана
	KindReviews Kind = "reviews"
)

// Observer получает события обхода для метрик и журналов
type Observer interface {
	PageFetched(kind Kind, page int, cards int)
	EmptyPage(kind Kind, page int, consecutive int)
	FetchFailed(kind Kind, err error)
	Finished(kind Kind, state State, pages int)
}

// NopObserver игнорирует все события
type NopObserver struct{}

func (NopObserver) PageFetched(Kind, int, int) {}
func (NopObserver) EmptyPage(Kind, int, int)   {}
func (NopObserver) FetchFailed(Kind, error)    {}
func (NopObserver) Finished(Kind, State, int)  {}

// Observers рассылает события нескольким наблюдателям
type Observers []Observer

func (o Observers) PageFetched(kind Kind, page, cards int) {
	for _, obs := range o {
		obs.PageFetched(kind, page, cards)
	}
}

func (o Observers) EmptyPage(kind Kind, page, consecutive int) {
	for _, obs := range o {
		obs.EmptyPage(kind, page, consecutive)
	}
}

func (o Observers) FetchFailed(kind Kind, err error) {
	for _, obs := range o {
		obs.FetchFailed(kind, err)
	}
}

func (o Observers) Finished(kind Kind, state State, pages int) {
	for _, obs := range o {
		obs.Finished(kind, state, pages)
	}
}
