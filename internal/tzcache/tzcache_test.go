package tzcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_CachesParsedZones(t *testing.T) {
	c := New(4)

	first, err := c.Location("Europe/London")
	require.NoError(t, err)

	second, err := c.Location("Europe/London")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestLocation_InvalidZoneNotCached(t *testing.T) {
	c := New(4)

	_, err := c.Location("Mars/Olympus_Mons")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLocation_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)

	_, err := c.Location("Europe/London")
	require.NoError(t, err)
	_, err = c.Location("Asia/Tokyo")
	require.NoError(t, err)

	// Touch London so Tokyo is the eviction candidate.
	_, err = c.Location("Europe/London")
	require.NoError(t, err)

	_, err = c.Location("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	c.mu.Lock()
	_, londonKept := c.items["Europe/London"]
	_, tokyoKept := c.items["Asia/Tokyo"]
	c.mu.Unlock()
	assert.True(t, londonKept)
	assert.False(t, tokyoKept)
}

func TestLocation_Concurrent(t *testing.T) {
	c := New(8)
	zones := []string{"Europe/London", "Asia/Tokyo", "America/New_York", "UTC"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc, err := c.Location(zones[i%len(zones)])
			if err != nil {
				panic(fmt.Sprintf("unexpected error: %v", err))
			}
			if loc == nil {
				panic("nil location")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(zones), c.Len())
}
