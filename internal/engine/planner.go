package engine

import (
	"sort"

	"github.com/shaiso/Conductor/internal/domain"
)

// PlanOptions — настройки планирования.
type PlanOptions struct {
	// DisallowEmpty — считать pipeline без jobs ошибкой (ErrEmptyPlan).
	// По умолчанию пустой план допустим.
	DisallowEmpty bool
}

// Plan строит ExecutionPlan из резолвленного графа послойным
// алгоритмом Кана:
//
//  1. Собираем все узлы с нулевой входящей степенью в очередной батч
//  2. Удаляем их, уменьшая входящую степень зависимых
//  3. Повторяем, пока узлы не кончатся
//
// Застревание (узлы остались, но нулевых нет) означает цикл —
// Resolve обязан был его поймать, Planner перепроверяет (defense in depth).
//
// Внутри батча узлы отсортированы лексикографически по ID job, поэтому
// одинаковый входной граф всегда даёт байт-в-байт одинаковый план.
//
// Возвращается либо полный валидный план, либо ошибка — частичных
// планов не бывает.
func Plan(graph *ResolvedGraph, opts PlanOptions) (*domain.ExecutionPlan, error) {
	if graph.Size() == 0 {
		if opts.DisallowEmpty {
			return nil, ErrEmptyPlan
		}
		return &domain.ExecutionPlan{
			Pipeline: graph.Pipeline,
			Batches:  [][]string{},
			Jobs:     []domain.JobNode{},
		}, nil
	}

	// Входящие степени и зависимые по ID.
	inDegree := make(map[string]int, graph.Size())
	dependents := make(map[string][]string, graph.Size())

	for _, node := range graph.Jobs {
		inDegree[node.ID] = 0
	}
	for _, edge := range graph.Edges {
		inDegree[edge.To]++
		dependents[edge.From] = append(dependents[edge.From], edge.To)
	}

	var batches [][]string
	placed := 0

	for placed < graph.Size() {
		// Все узлы с нулевой входящей степенью — очередной батч.
		batch := make([]string, 0)
		for id, deg := range inDegree {
			if deg == 0 {
				batch = append(batch, id)
			}
		}

		if len(batch) == 0 {
			// Застой: остались только узлы внутри цикла.
			remaining := make([]string, 0, len(inDegree))
			for id := range inDegree {
				remaining = append(remaining, id)
			}
			sort.Strings(remaining)
			return nil, &CycleError{Cycle: remaining}
		}

		// Детерминированный tie-break внутри батча.
		sort.Strings(batch)
		batches = append(batches, batch)
		placed += len(batch)

		for _, id := range batch {
			delete(inDegree, id)
			for _, dep := range dependents[id] {
				if _, live := inDegree[dep]; live {
					inDegree[dep]--
				}
			}
		}
	}

	return &domain.ExecutionPlan{
		Pipeline: graph.Pipeline,
		Batches:  batches,
		Jobs:     sortedJobs(graph),
		Skips:    sortedSkips(graph.Skips),
	}, nil
}

// sortedJobs возвращает копии JobNode, отсортированные по ID.
func sortedJobs(graph *ResolvedGraph) []domain.JobNode {
	jobs := make([]domain.JobNode, len(graph.Jobs))
	for i, node := range graph.Jobs {
		jobs[i] = *node
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

// sortedSkips возвращает записи о пропусках в стабильном порядке.
func sortedSkips(skips []domain.SkippedStepRecord) []domain.SkippedStepRecord {
	if len(skips) == 0 {
		return nil
	}
	out := make([]domain.SkippedStepRecord, len(skips))
	copy(out, skips)
	sort.Slice(out, func(i, j int) bool {
		if out[i].JobID != out[j].JobID {
			return out[i].JobID < out[j].JobID
		}
		return out[i].StepID < out[j].StepID
	})
	return out
}
