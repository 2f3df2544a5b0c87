// Package panels provides Grafana dashboard panel builders for
// item-notifier metrics.
package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// Job is the Prometheus job label the notifier is scraped under.
const Job = "item-notifier"

// Panel dimensions on the 24-column grid.
const (
	StatWidth  = 6
	StatHeight = 4

	ThirdWidth = 8
	TSWidth    = 12
	TSHeight   = 8

	FullWidth = 24
)

// DSRef returns a datasource reference pointing at the ${datasource}
// template variable.
func DSRef() dashboard.DataSourceRef {
	return dashboard.DataSourceRef{
		Type: cog.ToPtr("prometheus"),
		Uid:  cog.ToPtr("${datasource}"),
	}
}

// PromQuery builds a Prometheus query target.
func PromQuery(expr, legendFormat, refID string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expr).
		LegendFormat(legendFormat).
		RefId(refID)
}

// sel scopes a metric to the notifier job.
func sel(metric string) string {
	return metric + `{job="` + Job + `"}`
}

// quantile returns a histogram quantile over a notifier histogram, optionally
// keeping extra grouping labels.
func quantile(q, metric string, by ...string) string {
	group := "le"
	for _, l := range by {
		group += ", " + l
	}
	return `histogram_quantile(` + q + `, sum(rate(` + metric + `_bucket{job="` + Job + `"}[5m])) by (` + group + `))`
}

func step(value float64, color string) dashboard.Threshold {
	return dashboard.Threshold{Value: cog.ToPtr(value), Color: color}
}

func thresholds(base string, steps ...dashboard.Threshold) cog.Builder[dashboard.ThresholdsConfig] {
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps(append([]dashboard.Threshold{{Color: base}}, steps...))
}

// ThresholdsRedGreen is red below greenAbove and green at or above it.
func ThresholdsRedGreen(greenAbove float64) cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("red", step(greenAbove, "green"))
}

// ThresholdsGreenYellowRed returns three-tier thresholds.
func ThresholdsGreenYellowRed(yellow, red float64) cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("green", step(yellow, "yellow"), step(red, "red"))
}

// ThresholdsGreenOnly returns a single green step.
func ThresholdsGreenOnly() cog.Builder[dashboard.ThresholdsConfig] {
	return thresholds("green")
}

func colorMode(mode dashboard.FieldColorModeId) cog.Builder[dashboard.FieldColor] {
	return dashboard.NewFieldColorBuilder().Mode(mode)
}

// newStat returns a single-query stat panel colored by its thresholds.
func newStat(title, description, expr string) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(expr, "", "A")).
		ColorScheme(colorMode(dashboard.FieldColorModeIdThresholds)).
		GraphMode(common.BigValueGraphModeNone)
}

// newTimeseries returns a line chart with the shared styling.
func newTimeseries(title, description string, span uint32, targets ...*prometheus.DataqueryBuilder) *timeseries.PanelBuilder {
	b := timeseries.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(TSHeight).
		Span(span).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(colorMode(dashboard.FieldColorModeIdPaletteClassic)).
		DrawStyle(common.GraphDrawStyleLine)
	for _, t := range targets {
		b = b.WithTarget(t)
	}
	return b
}

// tableLegend displays the legend as a table with the given calculations
// and a sorted multi-series tooltip.
func tableLegend(b *timeseries.PanelBuilder, calcs ...string) *timeseries.PanelBuilder {
	return b.
		Legend(common.NewVizLegendOptionsBuilder().
			DisplayMode(common.LegendDisplayModeTable).
			Placement(common.LegendPlacementBottom).
			Calcs(calcs)).
		Tooltip(common.NewVizTooltipOptionsBuilder().
			Mode(common.TooltipDisplayModeMulti).
			Sort(common.SortOrderDescending))
}
