package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMacroblockIndexBoundaries(t *testing.T) {
	require.Equal(t, uint64(1), MacroblockIndex(1))
	require.Equal(t, uint64(1), MacroblockIndex(90))
	require.Equal(t, uint64(2), MacroblockIndex(91))
	require.Equal(t, uint64(2), MacroblockIndex(180))
	require.Equal(t, uint64(3), MacroblockIndex(181))
}

func TestRotationIndex(t *testing.T) {
	b := Microblock{Height: 59}
	require.Equal(t, uint64(1), b.RotationIndex(30))

	b2 := Microblock{Height: 60}
	require.Equal(t, uint64(2), b2.RotationIndex(30))
}
