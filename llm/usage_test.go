package llm

import (
	"context"
	"math"
	"sync"
	"testing"
)

func TestCalculateCost(t *testing.T) {
	got := CalculateCost("gpt-4o", 1000, 1000)
	if math.Abs(got-0.0125) > 1e-9 {
		t.Errorf("expected 0.0125, got %f", got)
	}

	unknown := CalculateCost("some-new-model", 1000, 0)
	mini := CalculateCost(DefaultOpenAIModel, 1000, 0)
	if unknown != mini {
		t.Errorf("unknown model should be priced as %s: %f != %f", DefaultOpenAIModel, unknown, mini)
	}
}

func TestUsageTrackerRecord(t *testing.T) {
	tracker := NewUsageTracker()

	tracker.Record("summarize", "gpt-4o", 100, 50, "", "")
	tracker.Record("summarize", "gpt-4o", 10, 5, "", "")
	tracker.Record("report", "gpt-4o", 1, 1, "", "")

	step := tracker.Step("summarize")
	if step.InputTokens != 110 || step.OutputTokens != 55 || step.TotalTokens != 165 {
		t.Errorf("unexpected summarize usage: %+v", step)
	}
	if step.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", step.Calls)
	}

	total := tracker.Total()
	if total.TotalTokens != 167 || total.Calls != 3 {
		t.Errorf("unexpected total usage: %+v", total)
	}
	if total.Cost <= 0 {
		t.Error("expected positive cost")
	}

	if missing := tracker.Step("nope"); missing.Calls != 0 {
		t.Errorf("expected empty usage for unknown step, got %+v", missing)
	}
}

func TestUsageTrackerEstimatesMissingCounts(t *testing.T) {
	tracker := NewUsageTracker()
	tracker.Record("classify", "gpt-4o", 0, 0, "Provide a JSON object with key sentiment", `{"sentiment":"positive"}`)

	u := tracker.Step("classify")
	if u.InputTokens == 0 || u.OutputTokens == 0 {
		t.Errorf("expected estimated token counts, got %+v", u)
	}
}

func TestUsageTrackerConcurrent(t *testing.T) {
	tracker := NewUsageTracker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record("fetch", "gpt-4o", 1, 1, "", "")
		}()
	}
	wg.Wait()

	if got := tracker.Total().Calls; got != 20 {
		t.Errorf("expected 20 calls, got %d", got)
	}
}

func TestNilTrackerIsNoop(t *testing.T) {
	var tracker *UsageTracker
	tracker.Record("x", "gpt-4o", 1, 1, "", "")
	if tracker.Total().Calls != 0 {
		t.Error("nil tracker should report no usage")
	}
	if tracker.SessionDuration() != 0 {
		t.Error("nil tracker should report no session time")
	}
}

func TestRecordUsageScopedTracker(t *testing.T) {
	session := NewUsageTracker()
	run := NewUsageTracker()
	ctx := WithStep(WithUsage(context.Background(), run), "report")

	recordUsage(ctx, session, "gpt-4o", 10, 5, "", "")

	if got := session.Total(); got.Calls != 1 || got.TotalTokens != 15 {
		t.Errorf("session tracker got %+v", got)
	}
	if got := run.Step("report"); got.Calls != 1 || got.TotalTokens != 15 {
		t.Errorf("run tracker got %+v", got)
	}

	recordUsage(WithUsage(context.Background(), session), session, "gpt-4o", 1, 1, "", "")
	if got := session.Total().Calls; got != 2 {
		t.Errorf("same tracker in ctx and client must be counted once, got %d calls", got)
	}

	recordUsage(context.Background(), nil, "gpt-4o", 1, 1, "", "")
	if UsageFrom(context.Background()) != nil {
		t.Error("expected no tracker on a bare context")
	}
}

func TestStepFrom(t *testing.T) {
	if got := StepFrom(context.Background()); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
	if got := StepFrom(WithStep(context.Background(), "report")); got != "report" {
		t.Errorf("expected report, got %q", got)
	}
}
