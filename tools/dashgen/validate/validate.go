// Package validate checks generated dashboards and rule files: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/item-notifier/tools/dashgen/rules"
)

// Result collects validation findings. Errors fail generation; warnings
// are reported but tolerated.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation produced no errors.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Dashboard validates every panel query in d against known.
func Dashboard(d dashboard.Dashboard, known map[string]bool) *Result {
	r := &Result{}
	for i, p := range d.Panels {
		switch {
		case p.Panel != nil:
			checkPanel(r, *p.Panel, known)
		case p.RowPanel != nil:
			if len(p.RowPanel.Panels) == 0 {
				r.warnf("row %d has no panels", i)
			}
			for _, inner := range p.RowPanel.Panels {
				checkPanel(r, inner, known)
			}
		}
	}
	return r
}

// Rules validates every expression in cr against known plus the recording
// rules cr itself defines.
func Rules(cr rules.PrometheusRule, known map[string]bool) *Result {
	r := &Result{}
	names := make(map[string]bool, len(known))
	for k, v := range known {
		names[k] = v
	}
	for _, g := range cr.Spec.Groups {
		for _, rule := range g.Rules {
			if rule.Record != "" {
				names[rule.Record] = true
			}
		}
	}

	for _, g := range cr.Spec.Groups {
		for _, rule := range g.Rules {
			name := rule.Record
			if name == "" {
				name = rule.Alert
			}
			if name == "" {
				r.errorf("group %s: rule has neither record nor alert", g.Name)
				continue
			}
			checkExpr(r, name, rule.Expr, names)
		}
	}
	return r
}

func checkPanel(r *Result, p dashboard.Panel, known map[string]bool) {
	title := "untitled"
	if p.Title != nil && *p.Title != "" {
		title = *p.Title
	} else {
		r.warnf("panel without a title")
	}
	if len(p.Targets) == 0 {
		r.warnf("panel %q has no queries", title)
	}
	for _, t := range p.Targets {
		expr, ok := promExpr(t)
		if !ok {
			r.warnf("panel %q has a non-prometheus query", title)
			continue
		}
		checkExpr(r, "panel "+title, expr, known)
	}
}

func promExpr(t any) (string, bool) {
	switch q := t.(type) {
	case *prometheus.Dataquery:
		return q.Expr, true
	case prometheus.Dataquery:
		return q.Expr, true
	default:
		return "", false
	}
}

func checkExpr(r *Result, where, expr string, known map[string]bool) {
	if strings.TrimSpace(expr) == "" {
		r.errorf("%s: empty expression", where)
		return
	}
	node, err := parser.ParseExpr(expr)
	if err != nil {
		r.errorf("%s: parsing %q: %v", where, expr, err)
		return
	}
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !known[baseMetric(vs.Name)] {
			r.errorf("%s: unknown metric %q", where, vs.Name)
		}
		return nil
	})
}

// baseMetric strips the series suffixes Prometheus adds to histograms.
func baseMetric(name string) string {
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			return base
		}
	}
	return name
}
