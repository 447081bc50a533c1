package scraper

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
	"golang.org/x/text/language"
)

// Locator описывает структурное правило поиска элемента: тег, набор классов
// и необязательное совпадение атрибута.
//
// Read задает, что читается из найденного элемента:
//   - "" - текст элемента;
//   - "@name" - значение атрибута name;
//   - любое другое значение - селектор дочернего элемента, чей текст читается.
type Locator struct {
	Tag   string `json:"tag"`
	Class string `json:"class,omitempty"`
	Attr  string `json:"attr,omitempty"`
	Value string `json:"value,omitempty"`
	Nth   int    `json:"nth,omitempty"`
	Read  string `json:"read,omitempty"`
}

// IsZero сообщает, что локатор не задан
func (l Locator) IsZero() bool {
	return l.Tag == "" && l.Class == "" && l.Attr == ""
}

// Selector строит CSS селектор для goquery
func (l Locator) Selector() string {
	var b strings.Builder
	b.WriteString(l.Tag)
	for _, class := range strings.Fields(l.Class) {
		fmt.Fprintf(&b, "[class~=%q]", class)
	}
	if l.Attr != "" {
		if l.Value != "" {
			fmt.Fprintf(&b, "[%s=%q]", l.Attr, l.Value)
		} else {
			fmt.Fprintf(&b, "[%s]", l.Attr)
		}
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// Find возвращает все элементы внутри root, подходящие под локатор
func (l Locator) Find(root *goquery.Selection) *goquery.Selection {
	return root.Find(l.Selector())
}

// First возвращает элемент с индексом Nth или nil, если его нет
func (l Locator) First(root *goquery.Selection) *goquery.Selection {
	found := l.Find(root)
	if l.Nth >= found.Length() || l.Nth < 0 {
		return nil
	}
	return found.Eq(l.Nth)
}

// ReadFrom читает значение из элемента согласно полю Read
func (l Locator) ReadFrom(sel *goquery.Selection) (string, bool) {
	switch {
	case l.Read == "":
		return sel.Text(), true
	case strings.HasPrefix(l.Read, "@"):
		return sel.Attr(strings.TrimPrefix(l.Read, "@"))
	default:
		child := sel.Find(l.Read)
		if child.Length() == 0 {
			return "", false
		}
		return child.First().Text(), true
	}
}

// Lookup находит элемент и читает из него значение; nil если локатор не сработал
func (l Locator) Lookup(root *goquery.Selection) *string {
	sel := l.First(root)
	if sel == nil {
		return nil
	}
	value, ok := l.ReadFrom(sel)
	if !ok {
		return nil
	}
	return &value
}

// ListingLocators описывает поля карточки ресторана
type ListingLocators struct {
	Title       Locator `json:"title"`
	DetailURL   Locator `json:"detail_url"`
	Rating      Locator `json:"rating"`
	ReviewCount Locator `json:"review_count"`
	Price       Locator `json:"price"`
	Cuisine     Locator `json:"cuisine"`
}

// ReviewLocators описывает поля карточки отзыва
type ReviewLocators struct {
	Author        Locator `json:"author"`
	Body          Locator `json:"body"`
	Rating        Locator `json:"rating"`
	Date          Locator `json:"date"`
	Contributions Locator `json:"contributions"`
}

// Locators объединяет все локаторы сайта
type Locators struct {
	ListingCard Locator         `json:"listing_card"`
	ReviewCard  Locator         `json:"review_card"`
	NextPage    Locator         `json:"next_page"`
	EmptyMarker Locator         `json:"empty_marker,omitempty"`
	Address     Locator         `json:"address"`
	Listing     ListingLocators `json:"listing"`
	Review      ReviewLocators  `json:"review"`
}

// Profile представляет версионируемое описание сайта: локаторы, подписи и шаблоны.
// Локаторы ломаются при редизайне сайта, поэтому живут в данных, а не в алгоритме.
type Profile struct {
	Version       string   `json:"version"`
	BaseURL       string   `json:"base_url"`
	Referer       string   `json:"referer"`
	Locale        string   `json:"locale"`
	NextPageLabel string   `json:"next_page_label"`
	DatePrefix    string   `json:"date_prefix"`
	DatePattern   string   `json:"date_pattern"`
	RatingPattern string   `json:"rating_pattern"`
	CountPattern  string   `json:"count_pattern"`
	PriceSymbol   string   `json:"price_symbol"`
	Locators      Locators `json:"locators"`
}

const (
	classListingTitle = "BMQDV _F Gv wSSLS SwZTJ FGwzt ukgoS"
	classNextPage     = "BrOJk u j z _F wSSLS tIqAi unMkR"
)

// FrenchProfile возвращает профиль tripadvisor.fr
func FrenchProfile() Profile {
	return Profile{
		Version:       "fr-2024.06",
		BaseURL:       "https://www.tripadvisor.fr",
		Referer:       "https://www.tripadvisor.fr/Hotels",
		Locale:        "fr",
		NextPageLabel: "Page suivante",
		DatePrefix:    "Rédigé le",
		DatePattern:   `(\d{1,2} \p{L}+\.? \d{4})`,
		RatingPattern: `(\d[,.]\d)`,
		CountPattern:  `(\d+)`,
		PriceSymbol:   "€",
		Locators: Locators{
			ListingCard: Locator{Tag: "div", Class: "vIjFZ Gi o VOEhq"},
			ReviewCard:  Locator{Tag: "div", Class: "_c"},
			NextPage:    Locator{Tag: "a", Class: classNextPage, Attr: "aria-label"},
			Address:     Locator{Tag: "a", Attr: "href", Value: "#MAPVIEW"},
			Listing: ListingLocators{
				Title:       Locator{Tag: "a", Class: classListingTitle},
				DetailURL:   Locator{Tag: "a", Class: classListingTitle, Read: "@href"},
				Rating:      Locator{Tag: "span", Class: "Qqwyj"},
				ReviewCount: Locator{Tag: "span", Class: "IiChw"},
				Price:       Locator{Tag: "span"},
				Cuisine:     Locator{Tag: "span", Class: "YECgr Tsrjt", Nth: 1},
			},
			Review: ReviewLocators{
				Author:        Locator{Tag: "a", Class: classListingTitle},
				Body:          Locator{Tag: "div", Class: "biGQs _P pZUbB KxBGd"},
				Rating:        Locator{Tag: "svg", Class: "UctUV d H0", Read: "title"},
				Date:          Locator{Tag: "div", Class: "biGQs _P pZUbB ncFvv osNWb"},
				Contributions: Locator{Tag: "span", Class: "b"},
			},
		},
	}
}

// EnglishProfile возвращает профиль tripadvisor.com
func EnglishProfile() Profile {
	return Profile{
		Version:       "en-2024.05",
		BaseURL:       "https://www.tripadvisor.com",
		Referer:       "https://www.tripadvisor.com/Hotels",
		Locale:        "en",
		NextPageLabel: "Next page",
		DatePrefix:    "Written",
		// две группы: "May 5, 2024" превращается в "May 5 2024"
		DatePattern:   `(\p{L}+\.? \d{1,2}), (\d{4})`,
		RatingPattern: `(\d[,.]\d)`,
		CountPattern:  `(\d+)`,
		PriceSymbol:   "$",
		Locators: Locators{
			ListingCard: Locator{Tag: "div", Class: "tbrcR _T DxHsn TwZIp rrkMt nSZNd DALUy Re"},
			ReviewCard:  Locator{Tag: "div", Class: "_c", Attr: "data-automation", Value: "reviewCard"},
			NextPage:    Locator{Tag: "a", Class: classNextPage, Attr: "aria-label"},
			Address:     Locator{Tag: "a", Attr: "href", Value: "#MAPVIEW"},
			Listing: ListingLocators{
				Title:       Locator{Tag: "a", Class: classListingTitle},
				DetailURL:   Locator{Tag: "a", Class: classListingTitle, Read: "@href"},
				Rating:      Locator{Tag: "div", Class: "jVDab W f u w JqMhy", Read: "@aria-label"},
				ReviewCount: Locator{Tag: "span", Class: "IiChw"},
				Price:       Locator{Tag: "span", Class: "biGQs _P pZUbB hmDzD"},
				Cuisine:     Locator{Tag: "span", Class: "biGQs _P pZUbB hmDzD"},
			},
			Review: ReviewLocators{
				Author:        Locator{Tag: "span", Class: "biGQs _P fiohW fOtGX"},
				Body:          Locator{Tag: "div", Class: "biGQs _P pZUbB KxBGd"},
				Rating:        Locator{Tag: "svg", Class: "UctUV d H0", Read: "title"},
				Date:          Locator{Tag: "div", Class: "biGQs _P pZUbB ncFvv osNWb"},
				Contributions: Locator{Tag: "div", Class: "biGQs _P pZUbB osNWb"},
			},
		},
	}
}

// ProfileFor возвращает встроенный профиль для локали
func ProfileFor(locale string) (Profile, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	base, _ := tag.Base()
	switch base.String() {
	case "fr":
		return FrenchProfile(), nil
	case "en":
		return EnglishProfile(), nil
	default:
		return Profile{}, fmt.Errorf("no built-in profile for locale %q", locale)
	}
}

// LoadProfileFile накладывает JSON5 файл поверх базового профиля.
// Поля, отсутствующие в файле, сохраняют значения базового профиля.
func LoadProfileFile(path string, base Profile) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile file: %w", err)
	}

	profile := base
	if err := json5.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Validate проверяет, что профиль пригоден для обхода
func (p Profile) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("profile base_url is required")
	}
	if p.Locators.ListingCard.IsZero() || p.Locators.ReviewCard.IsZero() {
		return fmt.Errorf("profile card locators are required")
	}
	if p.Locators.NextPage.IsZero() {
		return fmt.Errorf("profile next_page locator is required")
	}
	if _, err := language.Parse(p.Locale); err != nil {
		return fmt.Errorf("profile locale %q is invalid: %w", p.Locale, err)
	}
	for name, pattern := range map[string]string{
		"date_pattern":   p.DatePattern,
		"rating_pattern": p.RatingPattern,
		"count_pattern":  p.CountPattern,
	} {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("profile %s is invalid: %w", name, err)
		}
	}
	return nil
}

// nextPageLocator возвращает локатор кнопки "следующая страница" с подписью из профиля
func (p Profile) nextPageLocator() Locator {
	l := p.Locators.NextPage
	if l.Attr == "" {
		l.Attr = "aria-label"
	}
	l.Value = p.NextPageLabel
	if l.Read == "" {
		l.Read = "@href"
	}
	return l
}
