// Пакет view строит отображаемый список кейсов из снимка: фильтр по строке
// поиска и стабильная сортировка по приоритету. Функции пакета чистые и
// никогда не изменяют переданный срез.
package view

import (
	"sort"
	"strings"

	"CaseTracker/internal/model"
)

// Filter оставляет кейсы, у которых запрос (без учёта регистра) входит в
// case_name или client_name. Пустой после обрезки пробелов запрос пропускает всё.
// Порядок сохраняется, результат всегда новый срез.
func Filter(cases []model.Case, query string) []model.Case {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Case, 0, len(cases))
	for _, c := range cases {
		if q == "" || matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c model.Case, q string) bool {
	return strings.Contains(strings.ToLower(c.CaseName), q) ||
		strings.Contains(strings.ToLower(c.ClientName), q)
}

// SortByPriority возвращает копию, упорядоченную HIGH, MID, LOW.
// Кейсы с одинаковым приоритетом остаются в исходном порядке.
func SortByPriority(cases []model.Case) []model.Case {
	out := make([]model.Case, len(cases))
	copy(out, cases)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// Present = SortByPriority(Filter(snapshot, query))
func Present(snapshot []model.Case, query string) []model.Case {
	return SortByPriority(Filter(snapshot, query))
}
