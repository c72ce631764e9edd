package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	require.Len(t, first, 8)

	first[0].Number = "mutated"
	second := All()
	assert.Equal(t, "T1", second[0].Number)
}

func TestByNumber(t *testing.T) {
	table, ok := ByNumber("T7")
	require.True(t, ok)
	assert.Equal(t, 8, table.Capacity)
	assert.Equal(t, LocationPrivateRoom, table.Location)

	_, ok = ByNumber("T99")
	assert.False(t, ok)
}

func TestLocations(t *testing.T) {
	assert.Equal(t, []string{LocationMainHall, LocationOutdoor, LocationPrivateRoom}, Locations())
}

func TestByLocation(t *testing.T) {
	mainHall := ByLocation(LocationMainHall)
	require.Len(t, mainHall, 4)
	assert.Equal(t, "T1", mainHall[0].Number)

	assert.Empty(t, ByLocation("Rooftop"))
}
