package listing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"some", "random", "words", "with quotes"},
		Terms(`  some random  words "with   quotes  " `))
	assert.Equal(t, []string{"pixel", "cold box", "IRRAD3"}, Terms(`pixel "cold   box" IRRAD3`))
	assert.Empty(t, Terms("   "))
}

func TestMatch(t *testing.T) {
	terms := Terms(`atlas "strip module"`)
	assert.True(t, Match(terms, "ATLAS ITk", "long strip module v2"))
	assert.False(t, Match(terms, "ATLAS ITk", "pixel"))
	assert.True(t, Match(nil, "anything"))
}

func TestFilter(t *testing.T) {
	type row struct{ id, name string }
	rows := []row{{"SET-003200", "alpha"}, {"SET-003201", "beta"}, {"DOS-004000", "alphabet"}}
	got := Filter(rows, "alpha", func(r row) []string { return []string{r.id, r.name} })
	assert.Equal(t, []row{rows[0], rows[2]}, got)
	assert.Len(t, Filter(rows, "", func(r row) []string { return nil }), 3)
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPerPage(t *testing.T) {
	assert.Equal(t, 35, PerPage("all", 35))
	assert.Equal(t, 1, PerPage("all", 0))
	assert.Equal(t, 25, PerPage("25", 100))
	assert.Equal(t, DefaultPerPage, PerPage("", 100))
	assert.Equal(t, DefaultPerPage, PerPage("x", 100))
}

func TestPaginate_ClampsAndSlices(t *testing.T) {
	p := Paginate(ints(25), 10, 9)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 3, p.NumPages)
	assert.Equal(t, []int{20, 21, 22, 23, 24}, p.Items)
	assert.Equal(t, []int{1, 2, 3}, p.Window)
	assert.Equal(t, 2, p.Previous)
	assert.Equal(t, 3, p.Next)

	p = Paginate(ints(25), 10, -4)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.Previous)
	assert.Equal(t, 2, p.Next)
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate([]int{}, 10, 1)
	assert.Equal(t, 1, p.NumPages)
	assert.Empty(t, p.Items)
	assert.Equal(t, []int{1}, p.Window)
}

func TestPaginate_Window(t *testing.T) {
	p := Paginate(ints(300), 10, 15)
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, p.Window)

	p = Paginate(ints(300), 10, 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, p.Window)

	p = Paginate(ints(300), 10, 30)
	assert.Equal(t, []int{21, 22, 23, 24, 25, 26, 27, 28, 29, 30}, p.Window)
	assert.Equal(t, 30, p.Last)
}

func TestPaginate_DoublePagination(t *testing.T) {
	assert.True(t, Paginate(ints(60), 50, 1).DoublePagination)
	assert.False(t, Paginate(ints(60), 50, 2).DoublePagination)
}

func TestCheckSelection(t *testing.T) {
	exists := func(id int64) (bool, error) { return id < 100, nil }

	require.NoError(t, CheckSelection([]int64{1}, Single, 0, exists))
	require.NoError(t, CheckSelection([]int64{1, 2, 3}, Group, 5, exists))

	err := CheckSelection([]int64{1, 2}, Single, 0, exists)
	assert.EqualError(t, err, MsgInvalidOperation)

	err = CheckSelection(nil, Group, 5, exists)
	assert.EqualError(t, err, MsgInvalidOperation)

	err = CheckSelection([]int64{1, 2, 3, 4, 5, 6}, Group, 5, exists)
	assert.EqualError(t, err, "Invalid operation. Maximum number of selected elements exceeded. Limit is 5.")
	assert.True(t, IsSelectionError(err))

	err = CheckSelection([]int64{1, 200}, Group, 0, exists)
	assert.EqualError(t, err, MsgInvalidOperation)

	boom := errors.New("db down")
	err = CheckSelection([]int64{1}, Single, 0, func(int64) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsSelectionError(err))
}

func TestCleanNumberInRange(t *testing.T) {
	n, err := CleanNumberInRange("12.5", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 12.5, *n)

	n, err = CleanNumberInRange("  ", 0, 100)
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = CleanNumberInRange("101", 0, 100)
	assert.EqualError(t, err, "Number is invalid. Must be larger than 0 and lower than 100.")

	_, err = CleanNumberInRange("abc", 0.5)
	assert.EqualError(t, err, "Number is invalid. Must be larger than 0.5.")

	assert.NoError(t, CheckInRange(3, 1))
	assert.Error(t, CheckInRange(0, 1))
}
