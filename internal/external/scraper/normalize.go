package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe  = regexp.MustCompile(`[\r\n\t]+`)
	spacesRe      = regexp.MustCompile(` {2,}`)
	nonWordRe     = regexp.MustCompile(`\W`)
	rankedTitleRe = regexp.MustCompile(`^(\d+)\. (.*)$`)
)

// CleanText заменяет переводы строк и табуляцию пробелами, схлопывает повторные пробелы и обрезает края
func CleanText(raw string) string {
	text := whitespaceRe.ReplaceAllString(raw, " ")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExtractByPattern возвращает первую группу шаблона. Две группы склеиваются через пробел,
// группы начиная с третьей отбрасываются. Без групп возвращается все совпадение,
// без совпадения - пустая строка.
func ExtractByPattern(raw string, pattern *regexp.Regexp) string {
	if pattern == nil {
		return ""
	}
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	switch groups := len(match) - 1; {
	case groups == 0:
		return match[0]
	case groups == 1:
		return match[1]
	default:
		return match[1] + " " + match[2]
	}
}

// SplitRankedTitle отделяет ранг вида "12. " от названия.
// Разбиение идет по первому разделителю, без разделителя ранг равен nil.
func SplitRankedTitle(title string) (rank *string, name string) {
	match := rankedTitleRe.FindStringSubmatch(title)
	if match == nil {
		return nil, title
	}
	return &match[1], match[2]
}

// ParseRating разбирает рейтинг с разделителем "." или ",". Значения вне 0..5 дают nil.
func ParseRating(raw string) *float64 {
	value, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(raw), ",", ".", 1), 64)
	if err != nil || math.IsNaN(value) || value < 0 || value > 5 {
		return nil
	}
	return &value
}

// ParseCount удаляет из строки все не-словесные символы и берет первое число
func ParseCount(raw string, pattern *regexp.Regexp) *int {
	digits := ExtractByPattern(nonWordRe.ReplaceAllString(raw, ""), pattern)
	if digits == "" {
		return nil
	}
	value, err := strconv.Atoi(digits)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

// ParseDate убирает префикс вроде "Rédigé le", применяет шаблон даты профиля
// и разбирает день, название месяца и год в локали профиля
func ParseDate(raw string, datePrefix string, pattern *regexp.Regexp, locale string) *time.Time {
	text := CleanText(raw)
	if n := len(datePrefix); n > 0 && len(text) >= n && strings.EqualFold(text[:n], datePrefix) {
		text = strings.TrimSpace(text[n:])
	}
	if pattern != nil {
		text = ExtractByPattern(text, pattern)
	}
	if text == "" {
		return nil
	}

	months := monthNames(locale)
	var (
		day, year int
		month     time.Month
	)
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '/'
	}) {
		if n, err := strconv.Atoi(token); err == nil {
			switch {
			case len(token) == 4 && year == 0:
				year = n
			case n >= 1 && n <= 31 && day == 0:
				day = n
			}
			continue
		}
		if m, ok := months[foldKey(strings.TrimSuffix(token, "."))]; ok && month == 0 {
			month = m
		}
	}
	if day == 0 || month == 0 || year == 0 {
		return nil
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// 31 février нормализуется в март, такие даты отбрасываем
	if date.Day() != day || date.Month() != month {
		return nil
	}
	return &date
}

// foldKey приводит строку к виду без регистра и диакритики: "Février" -> "fevrier"
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

var monthTables = map[string][12][]string{
	"fr": {
		{"janvier", "janv"}, {"février", "févr", "fevr"}, {"mars"}, {"avril", "avr"},
		{"mai"}, {"juin"}, {"juillet", "juil"}, {"août", "aout"},
		{"septembre", "sept"}, {"octobre", "oct"}, {"novembre", "nov"}, {"décembre", "déc", "dec"},
	},
	"en": {
		{"january", "jan"}, {"february", "feb"}, {"march", "mar"}, {"april", "apr"},
		{"may"}, {"june", "jun"}, {"july", "jul"}, {"august", "aug"},
		{"september", "sep", "sept"}, {"october", "oct"}, {"november", "nov"}, {"december", "dec"},
	},
}

// monthNames возвращает таблицу названий месяцев для базового языка локали
func monthNames(locale string) map[string]time.Month {
	lang := "en"
	if tag, err := language.Parse(locale); err == nil {
		base, _ := tag.Base()
		lang = base.String()
	}
	table, ok := monthTables[lang]
	if !ok {
		table = monthTables["en"]
	}

	names := make(map[string]time.Month, 40)
	for i, variants := range table {
		for _, name := range variants {
			names[foldKey(name)] = time.Month(i + 1)
		}
	}
	return names
}
