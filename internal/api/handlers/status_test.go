package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/item-notifier/internal/api/handlers"
	"github.com/donaldgifford/item-notifier/internal/engine"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

func TestGetStatus(t *testing.T) {
	t.Parallel()

	next := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	tests := []struct {
		name         string
		engine       *fakeEngine
		sched        handlers.ScheduleInfo
		quota        handlers.QuotaInfo
		wantStatus   int
		wantContains []string
		wantMissing  []string
	}{
		{
			name: "engine status with schedule",
			engine: &fakeEngine{status: engine.Status{
				LastSeenItemID: "1183",
				HasCheckpoint:  true,
				Policy:         domain.PolicyMostRecentOnly,
				Polls:          12,
				Notified:       3,
			}},
			sched:      fakeSchedule{interval: 5 * time.Second, next: next},
			wantStatus: http.StatusOK,
			wantContains: []string{
				`"last_seen_item_id":"1183"`,
				`"has_checkpoint":true`,
				`"polls":12`,
				`"notified":3`,
				`"interval":"5s"`,
				`"next_run":"2026-03-01T12:00:05Z"`,
			},
		},
		{
			name:       "catalog request usage",
			engine:     &fakeEngine{},
			quota:      fakeQuota{count: 412, limit: 5000, resetAt: next},
			wantStatus: http.StatusOK,
			wantContains: []string{
				`"requests":412`,
				`"daily_limit":5000`,
				`"reset_at":"2026-03-01T12:00:05Z"`,
			},
		},
		{
			name:         "no schedule for one-shot runs",
			engine:       &fakeEngine{},
			wantStatus:   http.StatusOK,
			wantContains: []string{`"has_checkpoint":false`},
			wantMissing:  []string{`"schedule"`, `"rate_limit"`},
		},
		{
			name:       "status error",
			engine:     &fakeEngine{statusErr: errors.New("disk gone")},
			wantStatus: http.StatusInternalServerError,
			wantContains: []string{
				"failed to read status",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			handlers.RegisterStatusRoutes(api, handlers.NewStatusHandler(tt.engine, tt.sched, tt.quota))

			resp := api.Get("/api/v1/status")
			require.Equal(t, tt.wantStatus, resp.Code)
			for _, s := range tt.wantContains {
				assert.Contains(t, resp.Body.String(), s)
			}
			for _, s := range tt.wantMissing {
				assert.NotContains(t, resp.Body.String(), s)
			}
		})
	}
}
