package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultFixture_DecodesAndResolves(t *testing.T) {
	// act
	f, err := decodeFixture(bytes.NewReader(defaultFixture))

	// assert
	require.NoError(t, err)
	assert.Len(t, f.Languages, 5)
	assert.NotEmpty(t, f.Editions)

	var trial *editionFixture
	for i := range f.Editions {
		if f.Editions[i].ISBN != nil && *f.Editions[i].ISBN == "978-0-14-023750-4" {
			trial = &f.Editions[i]
		}
	}

	require.NotNil(t, trial)
	assert.Equal(t, "Der Process", trial.Book)
	assert.Equal(t, []string{"Willa Muir", "Edwin Muir"}, trial.Translators)
}

func Test_DecodeFixture_UnknownReferences(t *testing.T) {
	// arrange
	input := `{
		"languages": [{"code": "en", "name": "English"}],
		"countries": [],
		"authors": [{"fullName": "Nobody", "country": "XX"}],
		"books": [{"originalTitle": "Ghost", "originalLanguage": "en", "authors": ["Someone Else"], "genres": []}],
		"editions": [{"title": "Ghost", "book": "Ghost", "language": "fr"}]
	}`

	// act
	_, err := decodeFixture(strings.NewReader(input))

	// assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnknownReference))
	assert.Contains(t, err.Error(), `country "XX"`)
	assert.Contains(t, err.Error(), `author "Someone Else"`)
	assert.Contains(t, err.Error(), `language "fr"`)
}

func Test_DecodeFixture_Malformed(t *testing.T) {
	_, err := decodeFixture(strings.NewReader(`{"languages": [`))

	assert.Error(t, err)
	assert.False(t, errors.Is(err, errUnknownReference))
}

func Test_Seeder_OptionalID(t *testing.T) {
	s := &seeder{ids: map[string]int64{ref("country", "GB"): 7}}

	assert.Nil(t, s.optionalID("country", ""))
	require.NotNil(t, s.optionalID("country", "GB"))
	assert.Equal(t, int64(7), *s.optionalID("country", "GB"))
}

func Test_RootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])
	assert.True(t, names["stats"])
}
