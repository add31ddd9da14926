package chatflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "wedding-inquiry", list[0].ID)

	f, err := c.Get("book-tour")
	require.NoError(t, err)
	assert.Equal(t, "venue", f.Start)
	assert.Equal(t, []string{"venue", "first_name", "email"}, f.Required())

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"unknown next",
			`flows: [{id: a, start: s, steps: [{id: s, prompt: hi, next: x}, {id: e, end: true}]}]`,
			"unknown next step",
		},
		{
			"unreachable",
			`flows: [{id: a, start: s, steps: [{id: s, end: true}, {id: orphan, end: true}]}]`,
			"unreachable",
		},
		{
			"no end",
			`flows: [{id: a, start: s, steps: [{id: s, next: s}]}]`,
			"no end step",
		},
		{
			"dead end",
			`flows: [{id: a, start: s, steps: [{id: s}, {id: e, end: true}]}]`,
			"dead end",
		},
		{
			"bad capture",
			`flows: [{id: a, start: s, steps: [{id: s, capture: shoe_size, end: true}]}]`,
			"unknown capture field",
		},
		{
			"duplicate flow",
			`flows: [{id: a, start: s, steps: [{id: s, end: true}]}, {id: a, start: s, steps: [{id: s, end: true}]}]`,
			"duplicate flow id",
		},
		{
			"bad start",
			`flows: [{id: a, start: missing, steps: [{id: s, end: true}]}]`,
			"unknown start step",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheck(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	f, err := c.Get("wedding-inquiry")
	require.NoError(t, err)

	got, err := f.Check(Answers{
		"first_name":  " Jane ",
		"email":       "jane@example.com",
		"guest_count": "120",
		"event_date":  "2026-03-14",
		"shoe_size":   "9",
		"phone":       "",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", got["first_name"])
	assert.NotContains(t, got, "shoe_size")
	assert.NotContains(t, got, "phone")

	_, err = f.Check(Answers{"first_name": "Jane", "guest_count": "120"})
	assert.ErrorIs(t, err, ErrMissingAnswer)

	_, err = f.Check(Answers{"first_name": "Jane", "email": "jane@example.com", "guest_count": "lots"})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = f.Check(Answers{"first_name": "Jane", "email": "jane@example.com", "guest_count": "80", "event_date": "14/03/2026"})
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}
