package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bz888/parley/internal/api"
)

func TestListTitle(t *testing.T) {
	assert.Equal(t, "Trip planning", listTitle(api.Conversation{ID: "abc123", Title: "Trip planning"}))

	// Untitled conversations fall back to a shortened id.
	assert.Equal(t, "0f8fad5b", listTitle(api.Conversation{ID: "0f8fad5b-d9cb-469f-a165-70867728950e"}))

	// Ids shorter than the shortened form are used whole.
	assert.Equal(t, "c7", listTitle(api.Conversation{ID: "c7"}))
	assert.Equal(t, "", listTitle(api.Conversation{}))
}

func TestSnippetFlattensNewlines(t *testing.T) {
	assert.Equal(t, "one two", snippet("one\ntwo"))
}

func TestSnippetTruncatesLongText(t *testing.T) {
	long := strings.Repeat("ab", 40)
	got := snippet(long)
	assert.Equal(t, long[:40]+"…", got)
}

func TestSnippetTruncatesOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("世", 50)
	got := snippet(long)

	assert.Equal(t, strings.Repeat("世", 40)+"…", got)
	assert.True(t, strings.HasSuffix(got, "…"))
	for _, r := range got {
		assert.NotEqual(t, '�', r)
	}
}
