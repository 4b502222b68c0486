package views

import (
	"strings"
	"testing"
	"time"
)

func TestRender(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		next := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
		out := RenderStatus(&Status{
			Username:         "crabigator",
			Level:            12,
			LessonsAvailable: 3,
			ReviewsAvailable: 17,
			NextReviewAt:     &next,
		})

		for _, want := range []string{"crabigator", "12", "3", "17"} {
			if !strings.Contains(out, want) {
				t.Errorf("rendered status missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("LeechesEmpty", func(t *testing.T) {
		out := RenderLeeches(nil)
		if out == "" {
			t.Error("empty leech list should still render a message")
		}
	})

	t.Run("Forecast", func(t *testing.T) {
		bucket := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
		out := RenderForecast(&Forecast{
			Buckets: []ForecastBucket{{Time: bucket, Count: 5}},
			Total:   5,
		})
		if !strings.Contains(out, "5") {
			t.Errorf("rendered forecast missing count:\n%s", out)
		}
	})
}
