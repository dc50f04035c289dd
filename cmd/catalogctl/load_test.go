package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

func Test_parseScenarioWeights(t *testing.T) {
	testCases := []struct {
		input   string
		want    [2]int
		wantErr bool
	}{
		{input: "20,80", want: [2]int{20, 80}},
		{input: " 0 , 100 ", want: [2]int{0, 100}},
		{input: "50,40", wantErr: true},
		{input: "100", wantErr: true},
		{input: "10,20,70", wantErr: true},
		{input: "x,100", wantErr: true},
		{input: "-10,110", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseScenarioWeights(tc.input)

			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_selectScenario(t *testing.T) {
	weights := [2]int{20, 80}

	assert.Equal(t, scenarioCirculation, selectScenario(weights, 0))
	assert.Equal(t, scenarioCirculation, selectScenario(weights, 19))
	assert.Equal(t, scenarioLending, selectScenario(weights, 20))
	assert.Equal(t, scenarioLending, selectScenario(weights, 99))
	assert.Equal(t, scenarioLending, selectScenario([2]int{0, 100}, 0))
}

func Test_loadGenerator_record(t *testing.T) {
	// arrange
	g := &loadGenerator{}

	// act
	g.record(scenarioLending, nil)
	g.record(scenarioLending, errors.Join(catalog.ErrCapacityExceeded, errors.New("full")))
	g.record(scenarioCirculation, errors.New("boom"))

	// assert
	stats := g.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(1), stats.Rejections)
	assert.Equal(t, int64(1), stats.Errors)
}
