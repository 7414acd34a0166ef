package dashboard

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/storage"
)

// Handler renders the run journal on every request
func Handler(dataFile string, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results, err := storage.LoadResults(dataFile)
		if err != nil {
			logger.Warn("Journal not readable", "path", dataFile, "err", err)
		}
		page := components.NewPage()
		page.PageTitle = "threadbot"
		page.AddCharts(statusPie(results), runBars(results))
		if err := page.Render(w); err != nil {
			logger.Error("Dashboard render failed", "err", err)
		}
	})
}

func StartServer(dataFile string, port string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/", Handler(dataFile, logger))
	return http.ListenAndServe(":"+port, mux)
}

// 1. Outcome share across all runs
func statusPie(results []domain.TargetResult) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Row Status"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
	}
	var items []opts.PieData
	for _, k := range sortedKeys(counts) {
		items = append(items, opts.PieData{Name: k, Value: counts[k]})
	}
	pie.AddSeries("Targets", items)
	return pie
}

type runCount struct {
	first   int
	success int
	failed  int
}

// 2. Success against failure per run, in journal order
func runBars(results []domain.TargetResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Runs"}))

	runs := make(map[string]*runCount)
	for i, r := range results {
		rc, ok := runs[r.RunID]
		if !ok {
			rc = &runCount{first: i}
			runs[r.RunID] = rc
		}
		if r.Success() {
			rc.success++
		} else {
			rc.failed++
		}
	}
	ids := make([]string, 0, len(runs))
	for id := range runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return runs[ids[i]].first < runs[ids[j]].first })

	var x []string
	var ok, bad []opts.BarData
	for _, id := range ids {
		label := id
		if len(label) > 8 {
			label = label[:8]
		}
		x = append(x, label)
		ok = append(ok, opts.BarData{Value: runs[id].success})
		bad = append(bad, opts.BarData{Value: runs[id].failed})
	}
	bar.SetXAxis(x).
		AddSeries("Done", ok).
		AddSeries("Not done", bad)
	return bar
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
