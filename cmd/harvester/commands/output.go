package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"restoharvest/internal/external/scraper"
	"restoharvest/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
)

// bodyPreviewLength ограничивает текст отзыва в таблице
const bodyPreviewLength = 60

func parseFormat(value string) (outputFormat, error) {
	switch outputFormat(value) {
	case formatTable, formatJSON:
		return outputFormat(value), nil
	default:
		return "", fmt.Errorf("unknown format %q, expected table or json", value)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 1, 64)
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func renderListings(w io.Writer, format outputFormat, listings []scraper.RestaurantListing) error {
	if format == formatJSON {
		return writeJSON(w, listings)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Rank", "Name", "Rating", "Reviews", "Price", "Cuisine", "URL"})
	for _, l := range listings {
		t.AppendRow(table.Row{
			l.Position, orDash(l.SourceID), orDash(l.Name), floatOrDash(l.AverageRating),
			intOrDash(l.TotalReviewCount), orDash(l.PriceTier), orDash(l.CuisineType), orDash(l.DetailURL),
		})
	}
	t.AppendFooter(table.Row{"", "", "Total", "", "", "", "", len(listings)})
	t.Render()
	return nil
}

func renderDetails(w io.Writer, format outputFormat, details *scraper.RestaurantDetails) error {
	if format == formatJSON {
		return writeJSON(w, details)
	}

	t := newTable(w)
	t.SetTitle("Address: %s", orDash(details.Address))
	t.AppendHeader(table.Row{"Date", "Author", "Contributions", "Rating", "Review"})
	for _, r := range details.Reviews {
		t.AppendRow(table.Row{
			dateOrDash(r.WrittenOn), orDash(r.AuthorName), intOrDash(r.AuthorContributionCount),
			floatOrDash(r.Rating), text.Trim(orDash(r.BodyText), bodyPreviewLength),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(details.Reviews)})
	t.Render()
	return nil
}

func renderReport(w io.Writer, format outputFormat, report *service.BatchReport) error {
	if format == formatJSON {
		return writeJSON(w, report)
	}

	summary := newTable(w)
	summary.SetTitle("Batch harvest")
	summary.AppendRows([]table.Row{
		{"Duration", report.Duration().Round(time.Second)},
		{"Listings stored", report.Listings},
		{"New restaurants", report.NewListings},
		{"Candidates", report.Candidates},
		{"Harvested", report.Harvested},
		{"Reviews", report.Reviews},
		{"Zero review", report.ZeroReview},
		{"Skipped", report.Skipped},
		{"Failed", len(report.Failed)},
	})
	summary.Render()

	if report.HasFailures() {
		failures := newTable(w)
		failures.SetTitle("Failures")
		failures.AppendHeader(table.Row{"Name", "URL", "Reason"})
		for _, f := range report.Failed {
			failures.AppendRow(table.Row{f.Name, f.DetailURL, f.Reason})
		}
		failures.Render()
	}
	return nil
}

func renderStored(w io.Writer, format outputFormat, stored *service.StoredRestaurant) error {
	if format == formatJSON {
		return writeJSON(w, stored)
	}

	r := stored.Restaurant
	harvested := "-"
	if r.HarvestedAt != nil {
		harvested = r.HarvestedAt.Format(time.DateTime)
	}
	address, coordinates := "-", "-"
	if l := stored.Location; l != nil {
		address = l.Address
		if l.Resolved && l.Latitude != nil && l.Longitude != nil {
			coordinates = fmt.Sprintf("%.5f, %.5f", *l.Latitude, *l.Longitude)
		}
	}

	t := newTable(w)
	t.SetTitle(r.DisplayName())
	t.AppendRows([]table.Row{
		{"URL", r.DetailURL},
		{"Position", r.Position},
		{"Rating", floatOrDash(r.AverageRating)},
		{"Reviews on site", intOrDash(r.TotalReviewCount)},
		{"Reviews stored", stored.Reviews},
		{"Price", orDash(r.PriceTier)},
		{"Cuisine", orDash(r.CuisineType)},
		{"Harvested at", harvested},
		{"Address", address},
		{"Coordinates", coordinates},
	})
	t.Render()
	return nil
}
