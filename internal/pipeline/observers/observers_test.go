package observers_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/ashishact/ramble/internal/pipeline/observers"
	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/provider/llm"
	"github.com/ashishact/ramble/pkg/provider/llm/mock"
)

func seedUnit(t *testing.T, st *store.MemStore, text string) *store.Unit {
	t.Helper()
	u := &store.Unit{SessionID: "s1", Text: text, PreprocessedText: text}
	if err := st.CreateUnit(context.Background(), u); err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}
	return u
}

func seedClaim(t *testing.T, st *store.MemStore, unitID, text, polarity string) *store.Claim {
	t.Helper()
	c := &store.Claim{UnitID: unitID, Text: text, Polarity: polarity, Confidence: 0.9}
	if err := st.CreateClaims(context.Background(), []*store.Claim{c}); err != nil {
		t.Fatalf("CreateClaims: %v", err)
	}
	return c
}

func TestThemeObserver_FindsRecurringWord(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "the budget again")

	seedClaim(t, st, "other1", "The budget is too small", store.PolarityAssert)
	seedClaim(t, st, "other2", "Nobody reviewed the budget", store.PolarityAssert)
	mine := seedClaim(t, st, u.ID, "The budget worries me", store.PolarityAssert)

	unitClaims := []*store.Claim{mine}
	all, _ := st.AllClaims(ctx)

	out, err := observers.NewThemeObserver().Run(ctx, observers.Input{
		Unit: u, UnitClaims: unitClaims, AllClaims: all,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(out.Insights))
	}
	if len(out.Insights[0].ClaimIDs) != 3 {
		t.Errorf("claim ids = %d, want 3", len(out.Insights[0].ClaimIDs))
	}
}

func TestThemeObserver_IgnoresRareWords(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "one off")
	mine := seedClaim(t, st, u.ID, "The weather is nice", store.PolarityAssert)

	out, err := observers.NewThemeObserver().Run(ctx, observers.Input{
		Unit: u, UnitClaims: []*store.Claim{mine}, AllClaims: []*store.Claim{mine},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 0 {
		t.Errorf("insights = %d, want 0", len(out.Insights))
	}
}

func TestContradictionObserver_FlagsOpposingStances(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "actually no")

	earlier := seedClaim(t, st, "other", "The office is open on Fridays", store.PolarityAssert)
	mine := seedClaim(t, st, u.ID, "the office is open on fridays!", store.PolarityDeny)
	all, _ := st.AllClaims(ctx)

	out, err := observers.NewContradictionObserver().Run(ctx, observers.Input{
		Unit: u, UnitClaims: []*store.Claim{mine}, AllClaims: all,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(out.Insights))
	}
	ids := out.Insights[0].ClaimIDs
	if len(ids) != 2 || ids[0] != mine.ID || ids[1] != earlier.ID {
		t.Errorf("claim ids = %v, want [%s %s]", ids, mine.ID, earlier.ID)
	}
}

func TestContradictionObserver_HedgesDoNotContradict(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "hmm")

	seedClaim(t, st, "other", "The office is open on Fridays", store.PolarityAssert)
	mine := seedClaim(t, st, u.ID, "The office is open on Fridays", store.PolarityHedge)
	all, _ := st.AllClaims(ctx)

	out, err := observers.NewContradictionObserver().Run(ctx, observers.Input{
		Unit: u, UnitClaims: []*store.Claim{mine}, AllClaims: all,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 0 {
		t.Errorf("insights = %d, want 0", len(out.Insights))
	}
}

func TestReflectionObserver_BelowThresholdSkipsModelCall(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "a reflection"}}
	obs := observers.NewReflectionObserver(llm.NewChat(provider))

	var all []*store.Claim
	for i := 0; i < 9; i++ {
		all = append(all, &store.Claim{ID: fmt.Sprintf("c%d", i), Text: "I feel tired today"})
	}

	out, err := obs.Run(context.Background(), observers.Input{AllClaims: all})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 0 {
		t.Errorf("insights = %d, want 0 below threshold", len(out.Insights))
	}
	if len(provider.CompleteCalls) != 0 {
		t.Errorf("model calls = %d, want 0", len(provider.CompleteCalls))
	}
}

func TestReflectionObserver_ThresholdTriggersOneCall(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "The speaker is often tired."}}
	obs := observers.NewReflectionObserver(llm.NewChat(provider))

	var all []*store.Claim
	for i := 0; i < 10; i++ {
		all = append(all, &store.Claim{ID: fmt.Sprintf("c%d", i), Text: "I feel tired today"})
	}
	all = append(all, &store.Claim{ID: "c-else", Text: "The weather is nice"})

	out, err := obs.Run(context.Background(), observers.Input{AllClaims: all})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(out.Insights))
	}
	if out.Insights[0].Summary != "The speaker is often tired." {
		t.Errorf("summary = %q", out.Insights[0].Summary)
	}
	if len(out.Insights[0].ClaimIDs) != 10 {
		t.Errorf("claim ids = %d, want only the 10 self-referential", len(out.Insights[0].ClaimIDs))
	}
	if len(provider.CompleteCalls) != 1 {
		t.Errorf("model calls = %d, want 1", len(provider.CompleteCalls))
	}
}

// failingObserver always errors; the dispatcher must log and continue.
type failingObserver struct{}

func (failingObserver) Name() string         { return "failing" }
func (failingObserver) Kind() observers.Kind { return observers.KindNonLLM }
func (failingObserver) Run(context.Context, observers.Input) (observers.Output, error) {
	return observers.Output{}, errors.New("boom")
}

func TestDispatcher_FailingObserverIsSkipped(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "the budget again")

	seedClaim(t, st, "other1", "The budget is too small", store.PolarityAssert)
	seedClaim(t, st, "other2", "Nobody reviewed the budget", store.PolarityAssert)
	seedClaim(t, st, u.ID, "The budget worries me", store.PolarityAssert)

	d := observers.NewDispatcher(st, slog.Default(),
		failingObserver{},
		observers.NewThemeObserver(),
	)
	outputs, err := d.Run(ctx, u.ID, observers.KindNonLLM)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outputs["failing"] != 0 {
		t.Errorf("failing output = %d, want 0", outputs["failing"])
	}
	if outputs["recurring_theme"] != 1 {
		t.Errorf("theme output = %d, want 1", outputs["recurring_theme"])
	}

	insights, err := st.InsightsByObserver(ctx, "recurring_theme")
	if err != nil || len(insights) != 1 {
		t.Fatalf("insights persisted = %d, err %v; want 1", len(insights), err)
	}
	if insights[0].UnitID != u.ID || insights[0].Observer != "recurring_theme" {
		t.Errorf("insight attribution wrong: %+v", insights[0])
	}
}

func TestDispatcher_ReplayDoesNotRerunObserver(t *testing.T) {
	t.Parallel()

	st := store.NewMemStore()
	ctx := context.Background()
	u := seedUnit(t, st, "tired again")

	var all []*store.Claim
	for i := 0; i < 10; i++ {
		all = append(all, &store.Claim{UnitID: "old", Text: "I feel tired today"})
	}
	if err := st.CreateClaims(ctx, all); err != nil {
		t.Fatalf("CreateClaims: %v", err)
	}

	provider := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "reflection"}}
	d := observers.NewDispatcher(st, slog.Default(),
		observers.NewReflectionObserver(llm.NewChat(provider)),
	)

	first, err := d.Run(ctx, u.ID, observers.KindLLM)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := d.Run(ctx, u.ID, observers.KindLLM)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first["self_reflection"] != 1 || second["self_reflection"] != 1 {
		t.Errorf("outputs = %v then %v, want 1 and 1", first, second)
	}
	if len(provider.CompleteCalls) != 1 {
		t.Errorf("model calls = %d, want 1 across both runs", len(provider.CompleteCalls))
	}

	insights, _ := st.InsightsByObserver(ctx, "self_reflection")
	if len(insights) != 1 {
		t.Errorf("insights = %d, want 1", len(insights))
	}
}
