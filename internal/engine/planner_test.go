package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

// planPipeline — резолюция и планирование в один вызов.
func planPipeline(t *testing.T, reg *Registry, def *domain.PipelineDef) *domain.ExecutionPlan {
	t.Helper()

	graph, err := Resolve(reg, def)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	plan, err := Plan(graph, PlanOptions{})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	return plan
}

func fanOutPipeline() *domain.PipelineDef {
	// B и C зависят от A.
	params := map[string]any{"version": "1.0"}
	return &domain.PipelineDef{
		Name: "fanout",
		Jobs: []domain.JobDef{
			{ID: "C", Template: "build", Version: "1", Parameters: params, Needs: []string{"A"}},
			{ID: "A", Template: "build", Version: "1", Parameters: params},
			{ID: "B", Template: "build", Version: "1", Parameters: params, Needs: []string{"A"}},
		},
	}
}

func TestPlan_FanOutBatches(t *testing.T) {
	reg := testRegistry(t)

	plan := planPipeline(t, reg, fanOutPipeline())

	// [[A], [B, C]] — лексикографический tie-break внутри батча.
	want := [][]string{{"A"}, {"B", "C"}}
	if !reflect.DeepEqual(plan.Batches, want) {
		t.Errorf("expected batches %v, got %v", want, plan.Batches)
	}
}

func TestPlan_DependenciesInEarlierBatches(t *testing.T) {
	reg := testRegistry(t)

	// Ромб с хвостом: A → B → D, A → C → D, D → E.
	params := map[string]any{"version": "1.0"}
	def := &domain.PipelineDef{
		Name: "diamond",
		Jobs: []domain.JobDef{
			{ID: "A", Template: "build", Version: "1", Parameters: params},
			{ID: "B", Template: "build", Version: "1", Parameters: params, Needs: []string{"A"}},
			{ID: "C", Template: "build", Version: "1", Parameters: params, Needs: []string{"A"}},
			{ID: "D", Template: "build", Version: "1", Parameters: params, Needs: []string{"B", "C"}},
			{ID: "E", Template: "build", Version: "1", Parameters: params, Needs: []string{"D"}},
		},
	}

	plan := planPipeline(t, reg, def)

	want := [][]string{{"A"}, {"B", "C"}, {"D"}, {"E"}}
	if !reflect.DeepEqual(plan.Batches, want) {
		t.Errorf("expected batches %v, got %v", want, plan.Batches)
	}

	// Инвариант: каждая зависимость в строго более раннем батче.
	batchOf := make(map[string]int)
	for i, batch := range plan.Batches {
		for _, id := range batch {
			batchOf[id] = i
		}
	}
	for _, job := range plan.Jobs {
		for _, need := range job.Needs {
			if batchOf[need] >= batchOf[job.ID] {
				t.Errorf("dependency %s of %s is not in an earlier batch", need, job.ID)
			}
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	reg := testRegistry(t)

	// Два независимых вызова resolve+plan дают байт-в-байт одинаковый план.
	first := planPipeline(t, reg, fanOutPipeline())
	second := planPipeline(t, reg, fanOutPipeline())

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(firstJSON) != string(secondJSON) {
		t.Errorf("plans differ:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestPlan_JobsSortedByID(t *testing.T) {
	reg := testRegistry(t)

	plan := planPipeline(t, reg, fanOutPipeline())

	ids := make([]string, len(plan.Jobs))
	for i, job := range plan.Jobs {
		ids[i] = job.ID
	}
	if !reflect.DeepEqual(ids, []string{"A", "B", "C"}) {
		t.Errorf("expected jobs sorted [A B C], got %v", ids)
	}
}

func TestPlan_StalledGraphFailsCyclic(t *testing.T) {
	// Planner перепроверяет цикличность, даже если граф собран в обход Resolve.
	graph := &ResolvedGraph{
		Pipeline: "broken",
		Jobs: []*domain.JobNode{
			{ID: "D", Needs: []string{"E"}},
			{ID: "E", Needs: []string{"D"}},
		},
		Edges: []Edge{{From: "E", To: "D"}, {From: "D", To: "E"}},
		index: map[string]int{"D": 0, "E": 1},
	}

	plan, err := Plan(graph, PlanOptions{})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if plan != nil {
		t.Error("no partial plan may be returned on failure")
	}
}

func TestPlan_EmptyPipeline(t *testing.T) {
	graph := &ResolvedGraph{Pipeline: "empty", index: map[string]int{}}

	// По умолчанию пустой план допустим.
	plan, err := Plan(graph, PlanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.JobCount() != 0 || len(plan.Batches) != 0 {
		t.Errorf("expected empty plan, got %v", plan)
	}

	// С запретом — ErrEmptyPlan.
	_, err = Plan(graph, PlanOptions{DisallowEmpty: true})
	if !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("expected ErrEmptyPlan, got %v", err)
	}
}

func TestPlan_SkipsCarriedIntoPlan(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "ci",
		Jobs: []domain.JobDef{
			{ID: "build", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0", "publish": false}},
		},
	}

	plan := planPipeline(t, reg, def)

	if len(plan.Skips) != 1 || plan.Skips[0].StepID != "push" {
		t.Errorf("expected skip record for push, got %v", plan.Skips)
	}

	job, ok := plan.Job("build")
	if !ok {
		t.Fatal("job build not found in plan")
	}
	for _, step := range job.Steps {
		if step.ID == "push" {
			t.Error("skipped step must not be an executable unit")
		}
	}
}
