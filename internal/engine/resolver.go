package engine

import (
	"fmt"

	"github.com/shaiso/Conductor/internal/domain"
)

// Edge — ребро зависимости: From обязан попасть в более ранний батч, чем To.
type Edge struct {
	From string
	To   string
}

// ResolvedGraph — результат резолюции pipeline: jobs плюс рёбра.
//
// Граф гарантированно ацикличен — Resolve возвращает CycleError вместо
// частичного результата. Jobs идут в порядке объявления в PipelineDef.
type ResolvedGraph struct {
	// Pipeline — имя pipeline.
	Pipeline string

	// Jobs — материализованные JobNode в порядке объявления.
	Jobs []*domain.JobNode

	// Edges — рёбра зависимостей (predecessor → dependent).
	Edges []Edge

	// Skips — шаги, пропущенные по condition.
	Skips []domain.SkippedStepRecord

	index map[string]int
}

// Job возвращает JobNode по ID или nil.
func (g *ResolvedGraph) Job(id string) *domain.JobNode {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.Jobs[i]
}

// Size возвращает количество jobs в графе.
func (g *ResolvedGraph) Size() int {
	return len(g.Jobs)
}

// Resolve разворачивает определение pipeline в граф jobs.
//
// Для каждого JobDef:
//   - находит шаблон в registry (ErrUnresolvedTemplateReference при отсутствии)
//   - связывает параметры со схемой шаблона (ошибки Binder с контекстом job)
//   - фильтрует шаги по condition: шаг с ложным условием помечается
//     пропущенным и не попадает в план, но пропуск фиксируется
//   - строит рёбра из needs (ErrUnknownJobReference при ссылке в никуда)
//
// Затем проверяет граф на циклы обходом в глубину с явной раскраской
// узлов по индексной таблице (без рекурсии). При обнаружении цикла
// возвращает CycleError с последовательностью узлов.
//
// При любой ошибке частичный результат не возвращается.
func Resolve(reg *Registry, def *domain.PipelineDef) (*ResolvedGraph, error) {
	graph := &ResolvedGraph{
		Pipeline: def.Name,
		Jobs:     make([]*domain.JobNode, 0, len(def.Jobs)),
		index:    make(map[string]int, len(def.Jobs)),
	}

	// Первый проход: индексная таблица узлов.
	for i := range def.Jobs {
		job := &def.Jobs[i]

		if job.ID == "" {
			return nil, &ResolveError{Message: fmt.Sprintf("job %d has empty ID", i), Err: ErrEmptyJobID}
		}
		if _, exists := graph.index[job.ID]; exists {
			return nil, &ResolveError{JobID: job.ID,
				Message: fmt.Sprintf("duplicate job ID: %s", job.ID), Err: ErrDuplicateJobID}
		}

		graph.index[job.ID] = len(graph.Jobs)
		graph.Jobs = append(graph.Jobs, &domain.JobNode{
			ID:       job.ID,
			Template: job.Template,
			Version:  job.Version,
			Status:   domain.JobStatusPending,
		})
	}

	// Второй проход: материализация jobs и рёбра.
	for i := range def.Jobs {
		jobDef := &def.Jobs[i]
		node := graph.Jobs[graph.index[jobDef.ID]]

		tmpl, err := reg.Lookup(jobDef.Template, jobDef.Version)
		if err != nil {
			return nil, &ResolveError{JobID: jobDef.ID,
				Message: fmt.Sprintf("template %s@%s is not registered", jobDef.Template, jobDef.Version),
				Err:     fmt.Errorf("%w: %s@%s", ErrUnresolvedTemplateReference, jobDef.Template, jobDef.Version)}
		}

		binding, err := Bind(tmpl, jobDef.Parameters)
		if err != nil {
			return nil, &ResolveError{JobID: jobDef.ID, Message: err.Error(), Err: err}
		}
		node.Parameters = binding

		steps, skips, err := filterSteps(jobDef.ID, tmpl, binding)
		if err != nil {
			return nil, &ResolveError{JobID: jobDef.ID, Message: err.Error(), Err: err}
		}
		node.Steps = steps
		graph.Skips = append(graph.Skips, skips...)

		seenNeeds := make(map[string]bool, len(jobDef.Needs))
		for _, need := range jobDef.Needs {
			if seenNeeds[need] {
				// Дубликат ребра не должен удваивать входящую степень.
				continue
			}
			seenNeeds[need] = true
			if _, exists := graph.index[need]; !exists {
				return nil, &ResolveError{JobID: jobDef.ID,
					Message: fmt.Sprintf("needs unknown job: %s", need),
					Err:     fmt.Errorf("%w: %s", ErrUnknownJobReference, need)}
			}
			node.Needs = append(node.Needs, need)
			graph.Edges = append(graph.Edges, Edge{From: need, To: jobDef.ID})
		}
	}

	// Проверка на циклы по needs-рёбрам.
	if cycle := findCycle(graph); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	return graph, nil
}

// filterSteps применяет condition каждого шага к связанным параметрам.
//
// Шаг с ложным условием не попадает в исполняемый список; зависимость
// оставшихся шагов на пропущенный шаг отбрасывается (пропущенный шаг
// никогда не войдёт в план, ждать его нечего).
func filterSteps(jobID string, tmpl *domain.TemplateDefinition, binding domain.Binding) ([]domain.StepSpec, []domain.SkippedStepRecord, error) {
	steps := make([]domain.StepSpec, 0, len(tmpl.Steps))
	var skips []domain.SkippedStepRecord
	skipped := make(map[string]bool)

	for i := range tmpl.Steps {
		step := tmpl.Steps[i]

		ok, err := EvalCondition(step.Condition, binding)
		if err != nil {
			return nil, nil, fmt.Errorf("step %s: %w", step.ID, err)
		}

		if !ok {
			skipped[step.ID] = true
			skips = append(skips, domain.SkippedStepRecord{
				JobID:     jobID,
				StepID:    step.ID,
				Condition: step.Condition,
			})
			continue
		}

		if len(step.DependsOn) > 0 {
			deps := make([]string, 0, len(step.DependsOn))
			for _, dep := range step.DependsOn {
				if !skipped[dep] {
					deps = append(deps, dep)
				}
			}
			step.DependsOn = deps
		}

		steps = append(steps, step)
	}

	return steps, skips, nil
}

// Цвета узлов для обхода в глубину.
const (
	colorWhite = iota // не посещён
	colorGrey         // в текущем пути обхода
	colorBlack        // полностью обработан
)

// findCycle ищет цикл итеративным DFS по needs-рёбрам.
//
// Раскраска ведётся по индексной таблице графа, обход — явным стеком
// кадров вместо рекурсии, чтобы глубина графа не упиралась в стек
// горутины. Возвращает последовательность ID узлов цикла или nil.
func findCycle(graph *ResolvedGraph) []string {
	n := len(graph.Jobs)

	// Списки смежности по индексам: job → его needs.
	adj := make([][]int, n)
	for i, node := range graph.Jobs {
		for _, need := range node.Needs {
			adj[i] = append(adj[i], graph.index[need])
		}
	}

	colors := make([]int, n)

	for start := 0; start < n; start++ {
		if colors[start] != colorWhite {
			continue
		}

		stack := []dfsFrame{{idx: start}}
		colors[start] = colorGrey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.next >= len(adj[top.idx]) {
				colors[top.idx] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}

			neighbor := adj[top.idx][top.next]
			top.next++

			switch colors[neighbor] {
			case colorGrey:
				// Back-edge: цикл — участок текущего пути от neighbor до вершины стека.
				return extractCycle(graph, stack, neighbor)
			case colorWhite:
				colors[neighbor] = colorGrey
				stack = append(stack, dfsFrame{idx: neighbor})
			}
		}
	}

	return nil
}

// dfsFrame — кадр обхода: узел и позиция в его списке смежности.
type dfsFrame struct {
	idx  int
	next int
}

// extractCycle восстанавливает последовательность узлов цикла из стека обхода.
func extractCycle(graph *ResolvedGraph, stack []dfsFrame, from int) []string {
	pos := 0
	for i := range stack {
		if stack[i].idx == from {
			pos = i
			break
		}
	}

	cycle := make([]string, 0, len(stack)-pos)
	for _, f := range stack[pos:] {
		cycle = append(cycle, graph.Jobs[f.idx].ID)
	}
	return cycle
}
