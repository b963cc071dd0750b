package dashboard

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/review-scraper/internal/domain"
	"github.com/qepting91/review-scraper/internal/storage"
)

// MonthlyCounts buckets reviews by UTC creation month, oldest month first.
type MonthlyCounts struct {
	Months         []string
	Recommended    []int
	NotRecommended []int
}

func monthlyCounts(reviews []domain.Review) MonthlyCounts {
	up := make(map[string]int)
	down := make(map[string]int)
	seen := make(map[string]struct{})
	for _, r := range reviews {
		month := r.TimestampCreated.Time().Format("2006-01")
		seen[month] = struct{}{}
		if r.VotedUp {
			up[month]++
		} else {
			down[month]++
		}
	}

	var mc MonthlyCounts
	for m := range seen {
		mc.Months = append(mc.Months, m)
	}
	sort.Strings(mc.Months)
	for _, m := range mc.Months {
		mc.Recommended = append(mc.Recommended, up[m])
		mc.NotRecommended = append(mc.NotRecommended, down[m])
	}
	return mc
}

func title(doc *storage.Document) string {
	if doc.Game != "" {
		return doc.Game
	}
	return fmt.Sprintf("App %d", doc.AppID)
}

// BuildReport lays out the charts for one saved collection.
func BuildReport(doc *storage.Document) *components.Page {
	mc := monthlyCounts(doc.Reviews)
	subtitle := fmt.Sprintf("%d reviews, status %s", doc.Count, doc.Status)

	// 1. Reviews per month
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Reviews per Month: " + title(doc), Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	upData := make([]opts.BarData, 0, len(mc.Months))
	downData := make([]opts.BarData, 0, len(mc.Months))
	for i := range mc.Months {
		upData = append(upData, opts.BarData{Value: mc.Recommended[i]})
		downData = append(downData, opts.BarData{Value: mc.NotRecommended[i]})
	}
	bar.SetXAxis(mc.Months).
		AddSeries("Recommended", upData).
		AddSeries("Not Recommended", downData)

	// 2. Recommendation share
	var up, down int
	for _, r := range doc.Reviews {
		if r.VotedUp {
			up++
		} else {
			down++
		}
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Recommendation Share"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	pie.AddSeries("Reviews", []opts.PieData{
		{Name: "Recommended", Value: up},
		{Name: "Not Recommended", Value: down},
	})

	page := components.NewPage()
	page.PageTitle = title(doc)
	page.AddCharts(bar, pie)
	return page
}

// RenderReport writes the HTML report for doc to w.
func RenderReport(doc *storage.Document, w io.Writer) error {
	return BuildReport(doc).Render(w)
}

// WriteReport renders the report for the collection saved at dataFile into outPath.
func WriteReport(dataFile, outPath string) error {
	doc, err := storage.ReadDocument(dataFile)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := RenderReport(doc, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Handler re-reads dataFile on every request so a running server picks up new collections.
func Handler(dataFile string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, err := storage.ReadDocument(dataFile)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = RenderReport(doc, w)
	})
}

func StartServer(dataFile string, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", Handler(dataFile))
	return http.ListenAndServe(addr, mux)
}
