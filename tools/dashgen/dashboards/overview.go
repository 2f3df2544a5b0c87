// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/item-notifier/tools/dashgen/panels"
)

// OverviewUID is the stable dashboard UID.
const OverviewUID = "inotif-overview"

// BuildOverview constructs the item-notifier overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Item Notifier Overview").
		Uid(OverviewUID).
		Tags([]string{"inotif", "item-notifier"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.LastSeenStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Polling").
		WithPanel(panels.PollRate()).
		WithPanel(panels.PollErrors()).
		WithPanel(panels.PollDuration()).
		WithPanel(panels.ItemsDetected()).
		WithPanel(panels.TicksSkipped()))

	b.WithRow(dashboard.NewRowBuilder("Catalog").
		WithPanel(panels.CatalogRequests()).
		WithPanel(panels.CatalogLatency()).
		WithPanel(panels.DetailFallbacks()))

	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.NotificationsRate()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.NotificationsDiscarded()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
