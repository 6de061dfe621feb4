package recordstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Makepad-fr/focusflow/internal/model"
)

func sampleList() []model.Record {
	return []model.Record{
		{ID: "1", Title: "a", Done: false},
		{ID: "2", Title: "b", Done: true},
		{ID: "3", Title: "c", Done: false},
		{ID: "4", Title: "d", Done: true},
	}
}

func TestVisible(t *testing.T) {
	list := sampleList()

	all := Visible(list, false)
	assert.Equal(t, list, all)

	active := Visible(list, true)
	assert.Equal(t, []model.Record{list[0], list[2]}, active)

	assert.Empty(t, Visible(nil, true))
}

func TestCountsInvariant(t *testing.T) {
	lists := [][]model.Record{nil, sampleList(), sampleList()[:1], sampleList()[1:2]}
	for _, l := range lists {
		c := CountsOf(l)
		assert.Equal(t, c.Total, c.Done+c.Active)
		assert.Equal(t, len(l), c.Total)
	}
	assert.Equal(t, Counts{Total: 4, Done: 2, Active: 2}, CountsOf(sampleList()))
}

func TestSplit(t *testing.T) {
	pending, done := Split(sampleList())
	assert.Equal(t, []string{"a", "c"}, titles(pending))
	assert.Equal(t, []string{"b", "d"}, titles(done))
}

func titles(list []model.Record) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.Title)
	}
	return out
}
