package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldDiacritics(t *testing.T) {
	require.Equal(t, "Galatasaray Kulubu", FoldDiacritics("Galatasaray Kulübü"))
	require.Equal(t, "Malmo FF", FoldDiacritics("Malmö FF"))
	require.Equal(t, "Sporting CP", FoldDiacritics("Sporting CP"))
}

func TestCleanCell(t *testing.T) {
	require.Equal(t, "Real Madrid", CleanCell(" Real  Madrid "))
	require.Equal(t, "1 - 0", CleanCell("1  -\n0"))
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, NormalizeName("Malmö FF"), NormalizeName("malmo ff"))
	require.Equal(t, NormalizeName("Man. United"), NormalizeName("man united"))
	require.Equal(t, "saintetienne", NormalizeName("Saint-Étienne"))
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("FC Internazionale Milano", []string{"internazionale"}))
	require.False(t, MatchName("AC Milan", []string{"internazionale"}))
}
