package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

// testRegistry собирает registry с шаблонами build@1 и deploy@1.
func testRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()

	build := &domain.TemplateDefinition{
		Name:    "build",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "version", Type: domain.ParamTypeString, Required: true},
			{Name: "publish", Type: domain.ParamTypeBool, Default: false, HasDefault: true},
		},
		Steps: []domain.StepSpec{
			{ID: "restore", Run: "restore-deps"},
			{ID: "compile", Run: "compile", DependsOn: []string{"restore"}},
			{ID: "push", Run: "push-artifact", Condition: "publish", DependsOn: []string{"compile"}},
		},
	}
	deploy := &domain.TemplateDefinition{
		Name:    "deploy",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "env", Type: domain.ParamTypeEnum, Enum: []string{"staging", "prod"}, Required: true},
		},
		Steps: []domain.StepSpec{
			{ID: "rollout", Run: "rollout"},
		},
	}

	if err := reg.Register(build); err != nil {
		t.Fatalf("register build: %v", err)
	}
	if err := reg.Register(deploy); err != nil {
		t.Fatalf("register deploy: %v", err)
	}
	return reg
}

func TestResolve_SimpleChain(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "release",
		Jobs: []domain.JobDef{
			{ID: "build", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "8.0.x"}},
			{ID: "deploy", Template: "deploy", Version: "1",
				Parameters: map[string]any{"env": "staging"},
				Needs:      []string{"build"}},
		},
	}

	graph, err := Resolve(reg, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.Size() != 2 {
		t.Errorf("expected 2 jobs, got %d", graph.Size())
	}
	if graph.Pipeline != "release" {
		t.Errorf("expected pipeline release, got %s", graph.Pipeline)
	}

	// Проверяем рёбра
	wantEdges := []Edge{{From: "build", To: "deploy"}}
	if !reflect.DeepEqual(graph.Edges, wantEdges) {
		t.Errorf("expected edges %v, got %v", wantEdges, graph.Edges)
	}

	// Проверяем связывание
	build := graph.Job("build")
	if build == nil {
		t.Fatal("job build not found")
	}
	if build.Parameters["version"] != "8.0.x" {
		t.Errorf("expected bound version 8.0.x, got %v", build.Parameters["version"])
	}
	if build.Parameters["publish"] != false {
		t.Errorf("expected default publish=false, got %v", build.Parameters["publish"])
	}
	if build.Status != domain.JobStatusPending {
		t.Errorf("expected PENDING status, got %s", build.Status)
	}
}

func TestResolve_ConditionSkipsStep(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "ci",
		Jobs: []domain.JobDef{
			{ID: "build", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0", "publish": false}},
		},
	}

	graph, err := Resolve(reg, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Шаг push пропущен: condition "publish" == false.
	build := graph.Job("build")
	if len(build.Steps) != 2 {
		t.Fatalf("expected 2 executable steps, got %d", len(build.Steps))
	}
	for _, step := range build.Steps {
		if step.ID == "push" {
			t.Error("step push should have been skipped")
		}
	}

	// Пропуск зафиксирован для наблюдаемости.
	wantSkips := []domain.SkippedStepRecord{
		{JobID: "build", StepID: "push", Condition: "publish"},
	}
	if !reflect.DeepEqual(graph.Skips, wantSkips) {
		t.Errorf("expected skips %v, got %v", wantSkips, graph.Skips)
	}
}

func TestResolve_ConditionTrueKeepsStep(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "ci",
		Jobs: []domain.JobDef{
			{ID: "build", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0", "publish": true}},
		},
	}

	graph, err := Resolve(reg, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	build := graph.Job("build")
	if len(build.Steps) != 3 {
		t.Errorf("expected 3 executable steps, got %d", len(build.Steps))
	}
	if len(graph.Skips) != 0 {
		t.Errorf("expected no skips, got %v", graph.Skips)
	}
}

func TestResolve_DependencyOnSkippedStepDropped(t *testing.T) {
	reg := NewRegistry()

	tmpl := &domain.TemplateDefinition{
		Name:    "gated",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "gate", Type: domain.ParamTypeBool, Required: true},
		},
		Steps: []domain.StepSpec{
			{ID: "guarded", Run: "guarded", Condition: "gate"},
			{ID: "always", Run: "always", DependsOn: []string{"guarded"}},
		},
	}
	if err := reg.Register(tmpl); err != nil {
		t.Fatalf("register: %v", err)
	}

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "gated", Version: "1",
				Parameters: map[string]any{"gate": false}},
		},
	}

	graph, err := Resolve(reg, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Зависимость на пропущенный шаг отброшена — ждать его нечего.
	job := graph.Job("j")
	if len(job.Steps) != 1 || job.Steps[0].ID != "always" {
		t.Fatalf("expected single step always, got %v", job.Steps)
	}
	if len(job.Steps[0].DependsOn) != 0 {
		t.Errorf("dependency on skipped step should be dropped, got %v", job.Steps[0].DependsOn)
	}
}

func TestResolve_UnresolvedTemplateReference(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "build", Version: "42",
				Parameters: map[string]any{"version": "1.0"}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrUnresolvedTemplateReference) {
		t.Errorf("expected ErrUnresolvedTemplateReference, got %v", err)
	}

	var rerr *ResolveError
	if !errors.As(err, &rerr) {
		t.Fatal("expected ResolveError")
	}
	if rerr.JobID != "j" {
		t.Errorf("expected offending job j, got %s", rerr.JobID)
	}
}

func TestResolve_BindErrorsCarryJobContext(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0", "typo": 1}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter through resolve, got %v", err)
	}

	var rerr *ResolveError
	if !errors.As(err, &rerr) || rerr.JobID != "j" {
		t.Errorf("expected ResolveError for job j, got %v", err)
	}
}

func TestResolve_UnknownJobReference(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0"},
				Needs:      []string{"ghost"}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrUnknownJobReference) {
		t.Errorf("expected ErrUnknownJobReference, got %v", err)
	}
}

func TestResolve_DuplicateJobID(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "build", Version: "1", Parameters: map[string]any{"version": "1.0"}},
			{ID: "j", Template: "build", Version: "1", Parameters: map[string]any{"version": "1.0"}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrDuplicateJobID) {
		t.Errorf("expected ErrDuplicateJobID, got %v", err)
	}
}

func TestResolve_CyclicDependency(t *testing.T) {
	reg := testRegistry(t)

	// D зависит от E, E зависит от D.
	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "D", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0"}, Needs: []string{"E"}},
			{ID: "E", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0"}, Needs: []string{"D"}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	// Цикл назван: [D, E].
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatal("expected CycleError")
	}
	if !reflect.DeepEqual(cerr.Cycle, []string{"D", "E"}) {
		t.Errorf("expected cycle [D E], got %v", cerr.Cycle)
	}
}

func TestResolve_SelfCycle(t *testing.T) {
	reg := testRegistry(t)

	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "j", Template: "build", Version: "1",
				Parameters: map[string]any{"version": "1.0"}, Needs: []string{"j"}},
		},
	}

	_, err := Resolve(reg, def)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatal("expected CycleError")
	}
	if !reflect.DeepEqual(cerr.Cycle, []string{"j"}) {
		t.Errorf("expected cycle [j], got %v", cerr.Cycle)
	}
}

func TestResolve_LongerCycleNamed(t *testing.T) {
	reg := testRegistry(t)

	// A → B → C → A, плюс непричастный job X.
	params := map[string]any{"version": "1.0"}
	def := &domain.PipelineDef{
		Name: "p",
		Jobs: []domain.JobDef{
			{ID: "X", Template: "build", Version: "1", Parameters: params},
			{ID: "A", Template: "build", Version: "1", Parameters: params, Needs: []string{"C"}},
			{ID: "B", Template: "build", Version: "1", Parameters: params, Needs: []string{"A"}},
			{ID: "C", Template: "build", Version: "1", Parameters: params, Needs: []string{"B"}},
		},
	}

	_, err := Resolve(reg, def)

	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cerr.Cycle) != 3 {
		t.Errorf("expected 3-node cycle, got %v", cerr.Cycle)
	}
	// Непричастный узел в цикл не попадает.
	for _, id := range cerr.Cycle {
		if id == "X" {
			t.Errorf("unrelated job X reported in cycle %v", cerr.Cycle)
		}
	}
}
