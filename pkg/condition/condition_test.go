package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

func fixedParser() *Parser {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	return &Parser{Now: func() time.Time { return now }, Location: time.UTC}
}

func TestParseDateKeywords(t *testing.T) {
	p := fixedParser()
	now := p.Now()

	tests := []struct {
		text string
		want time.Time
	}{
		{"now", now},
		{"NOW", now},
		{"today", now},
		{"yesterday", now.AddDate(0, 0, -1)},
		{"-2", now.AddDate(0, 0, -2)},
		{"-30", now.AddDate(0, 0, -30)},
		{"12/12/2012", time.Date(2012, 12, 12, 0, 0, 0, 0, time.UTC)},
		{"2012-12-12T10:00:00Z", time.Date(2012, 12, 12, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, err := p.Parse(tt.text, tabular.TypeDBTimestamp)
			require.NoError(t, err)
			got, ok := v.TimeValue()
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tabular.TypeDBTimestamp, v.Type())
		})
	}
}

func TestParseNumbers(t *testing.T) {
	p := fixedParser()

	v, err := p.Parse("1", tabular.TypeI8)
	require.NoError(t, err)
	assert.True(t, v.Equal(tabular.Int(tabular.TypeI8, 1)))

	v, err = p.Parse("-2", tabular.TypeI4)
	require.NoError(t, err)
	assert.True(t, v.Equal(tabular.Int(tabular.TypeI4, -2)))

	v, err = p.Parse("2.5", tabular.TypeR8)
	require.NoError(t, err)
	assert.True(t, v.Equal(tabular.Float(tabular.TypeR8, 2.5)))
}

func TestParseStringPassthrough(t *testing.T) {
	v, err := fixedParser().Parse("-2", tabular.TypeWString)
	require.NoError(t, err)
	assert.Equal(t, "-2", v.Text())
}

func TestParseErrors(t *testing.T) {
	p := fixedParser()
	tests := []struct {
		text string
		kind tabular.DataType
	}{
		{"abc", tabular.TypeI8},
		{"1,5", tabular.TypeR8},
		{"-x", tabular.TypeDate},
		{"someday", tabular.TypeDate},
		{"tomorrow", tabular.TypeDate},
		{"+2", tabular.TypeDate},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := p.Parse(tt.text, tt.kind)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestParseDefaultClock(t *testing.T) {
	var p Parser
	before := time.Now()
	v, err := p.Parse("now", tabular.TypeDate)
	require.NoError(t, err)
	got, _ := v.TimeValue()
	assert.False(t, got.Before(before))
}
