package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/prompt-vault/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "case and whitespace variants collapse",
			input: []string{"  Coding ", "coding", "CODING"},
			want:  []string{"coding"},
		},
		{
			name:  "first occurrence order is kept",
			input: []string{"Writing", "research", "writing", "Go"},
			want:  []string{"writing", "research", "go"},
		},
		{
			name:  "empty and blank entries are dropped",
			input: []string{"", "   ", "\t", "ai"},
			want:  []string{"ai"},
		},
		{
			name:  "nil input yields empty list",
			input: nil,
			want:  []string{},
		},
		{
			name:  "inner spaces are preserved",
			input: []string{" Code Review "},
			want:  []string{"code review"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := [][]string{
		{"  Coding ", "coding", "CODING"},
		{"B", "a", "b", " A "},
		{},
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "comma list", input: "Go, SQL ,go", want: []string{"go", "sql"}},
		{name: "single tag", input: "research", want: []string{"research"}},
		{name: "empty string", input: "", want: []string{}},
		{name: "only delimiters", input: " , ,, ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.input))
		})
	}
}

func TestCount(t *testing.T) {
	prompts := []model.Prompt{
		{ID: 1, Tags: []string{"go", "sql"}},
		{ID: 2, Tags: []string{"go", "writing"}},
		{ID: 3, Tags: []string{"writing", "ai"}},
		{ID: 4, Tags: []string{"go"}},
		{ID: 5, Tags: nil},
	}

	got := Count(prompts)

	assert.Equal(t, []model.TagCount{
		{Tag: "go", Count: 3},
		{Tag: "writing", Count: 2},
		{Tag: "ai", Count: 1},
		{Tag: "sql", Count: 1},
	}, got)
}

func TestCount_OneIncrementPerPrompt(t *testing.T) {
	// Un-normalized legacy rows still count once per prompt.
	prompts := []model.Prompt{
		{ID: 1, Tags: []string{"Go", "go", " GO "}},
	}

	assert.Equal(t, []model.TagCount{{Tag: "go", Count: 1}}, Count(prompts))
}

func TestCount_Empty(t *testing.T) {
	got := Count(nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
