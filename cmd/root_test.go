package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSurveyFlag(t *testing.T) {
	year, path, err := parseSurveyFlag("2024=data/ipeds_2024.csv")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, "data/ipeds_2024.csv", path)

	year, path, err = parseSurveyFlag(" 2023 = data/old.csv ")
	require.NoError(t, err)
	assert.Equal(t, 2023, year)
	assert.Equal(t, "data/old.csv", path)

	_, _, err = parseSurveyFlag("data/ipeds.csv")
	assert.Error(t, err)

	_, _, err = parseSurveyFlag("twentytwentyfour=data/ipeds.csv")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["score990"])
	assert.True(t, names["scoreipeds"])
	assert.True(t, names["fetch"])
}
