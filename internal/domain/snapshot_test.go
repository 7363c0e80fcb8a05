package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenateSnapshots(t *testing.T) {
	src := NewTable(SurveyMarkets, []Record{
		{DateColumn: "2023-03-01", InfrastructureIDColumn: 0, "STMB5": "En cours"},
		{DateColumn: "2022-05-01", InfrastructureIDColumn: 1, "STMB5": "Réception définitive"},
		{DateColumn: "2022-01-10", InfrastructureIDColumn: 0, "STMB5": "Démarrage"},
		{DateColumn: "2024-02-01", InfrastructureIDColumn: 0, "STMB5": "Réception provisoire sans réserve"},
	})

	out, err := ConcatenateSnapshots(src, DateColumn)
	require.NoError(t, err)

	type snap struct {
		year   any
		id     any
		status any
	}
	var got []snap
	for _, r := range out.Records {
		got = append(got, snap{r[OverYearColumn], r[InfrastructureIDColumn], r["STMB5"]})
	}

	assert.Equal(t, []snap{
		{2022, 0, "Démarrage"},
		{2022, 1, "Réception définitive"},
		{2023, 0, "En cours"},
		{2023, 1, "Réception définitive"},
		{2024, 0, "Réception provisoire sans réserve"},
		{2024, 1, "Réception définitive"},
	}, got)
	assert.True(t, out.HasColumns(OverYearColumn))
}

func TestConcatenateSnapshotsErrors(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		out, err := ConcatenateSnapshots(Table{Name: "x"}, DateColumn)
		require.NoError(t, err)
		assert.Empty(t, out.Records)
	})

	t.Run("missing identity column", func(t *testing.T) {
		_, err := ConcatenateSnapshots(NewTable("x", []Record{{DateColumn: "2022-01-01"}}), DateColumn)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := ConcatenateSnapshots(NewTable("x", []Record{{DateColumn: "hier", InfrastructureIDColumn: 0}}), DateColumn)
		assert.ErrorIs(t, err, ErrMalformedValue)
	})
}
