package view

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CaseTracker/internal/model"
)

func mk(id, caseName, client string, p model.Priority) model.Case {
	return model.Case{ID: id, CaseName: caseName, ClientName: client, Priority: p}
}

func ids(cases []model.Case) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.ID)
	}
	return out
}

func sample() []model.Case {
	return []model.Case{
		mk("1", "Acme Site", "Acme Co", model.PriorityLow),
		mk("2", "Beta Shop", "Beta Retail", model.PriorityHigh),
		mk("3", "Gamma Landing", "ACME Holdings", model.PriorityMid),
		mk("4", "Delta Portal", "Delta", model.PriorityHigh),
		mk("5", "Epsilon App", "Epsilon", model.PriorityLow),
	}
}

func TestFilter_EmptyQueryKeepsAll(t *testing.T) {
	cases := sample()
	for _, q := range []string{"", "   ", "\t"} {
		require.Equal(t, ids(cases), ids(Filter(cases, q)), "query %q", q)
	}
}

func TestFilter_CaseInsensitiveOnBothNames(t *testing.T) {
	cases := sample()
	require.Equal(t, []string{"1", "3"}, ids(Filter(cases, "acme")))
	require.Equal(t, []string{"1", "3"}, ids(Filter(cases, "  ACME ")))
	require.Equal(t, []string{"2"}, ids(Filter(cases, "retail")))
	require.Empty(t, Filter(cases, "zeta"))
}

func TestFilter_ReturnsNewSlice(t *testing.T) {
	cases := sample()
	out := Filter(cases, "")
	out[0].CaseName = "changed"
	require.Equal(t, "Acme Site", cases[0].CaseName)
}

func TestSortByPriority_StableAndOrdered(t *testing.T) {
	cases := sample()
	out := SortByPriority(cases)
	require.Equal(t, []string{"2", "4", "3", "1", "5"}, ids(out))
	for i := 1; i < len(out); i++ {
		require.LessOrEqual(t, out[i-1].Priority.Rank(), out[i].Priority.Rank())
	}
	// исходный срез не изменён
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(cases))
}

func TestSortByPriority_LowThenHigh(t *testing.T) {
	cases := []model.Case{
		mk("low", "Low Case", "L", model.PriorityLow),
		mk("high", "High Case", "H", model.PriorityHigh),
	}
	out := SortByPriority(cases)
	require.Equal(t, []model.Priority{model.PriorityHigh, model.PriorityLow},
		[]model.Priority{out[0].Priority, out[1].Priority})
}

func TestSortByPriority_Empty(t *testing.T) {
	require.Empty(t, SortByPriority(nil))
}

func TestPresent(t *testing.T) {
	cases := sample()
	require.Equal(t, []string{"3", "1"}, ids(Present(cases, "acme")))
	require.Equal(t, []string{"2", "4", "3", "1", "5"}, ids(Present(cases, "")))
}
