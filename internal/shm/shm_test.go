package shm

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testName(t *testing.T) string {
	return fmt.Sprintf("shm_internal_t%d_%s", os.Getpid(), t.Name())
}

func TestOpenOrCreateThenOpen(t *testing.T) {
	name := testName(t)
	creator, err := OpenOrCreate(name, 8192)
	require.NoError(t, err)
	defer func() {
		_ = creator.Close()
		_ = creator.Unlink()
	}()
	assert.True(t, creator.Created)
	assert.Len(t, creator.Mem, 8192)
	assert.True(t, Exists(name))

	opener, err := OpenOrCreate(name, 8192)
	require.NoError(t, err)
	defer opener.Close()
	assert.False(t, opener.Created, "second caller opens, never recreates")

	// Same backing pages: a write through one mapping is visible in the
	// other.
	creator.Mem[100] = 0xAB
	assert.Equal(t, byte(0xAB), opener.Mem[100])
}

func TestOpenOrCreateRejectsShortFile(t *testing.T) {
	name := testName(t)
	path := regionPath(name)

	// A creator that died between create and truncate leaves a short
	// file. Opening it must fail instead of mapping past EOF.
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o600))
	defer os.Remove(path)

	_, err := OpenOrCreate(name, 8192)
	assert.ErrorIs(t, err, ErrRegionInit)
}

func TestOpenOrCreateInvalidSize(t *testing.T) {
	_, err := OpenOrCreate("irrelevant", 0)
	assert.ErrorIs(t, err, ErrRegionInit)
}

func TestUnlink(t *testing.T) {
	name := testName(t)
	region, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)

	require.NoError(t, region.Close())
	require.NoError(t, region.Unlink())
	assert.False(t, Exists(name))
}

func TestCloseIsIdempotentEnough(t *testing.T) {
	region, err := OpenOrCreate(testName(t), 4096)
	require.NoError(t, err)
	defer region.Unlink()
	require.NoError(t, region.Close())
	assert.NoError(t, region.Close(), "second close is a no-op")
}

func TestCanCreateOnDevShm(t *testing.T) {
	switch runtime.GOOS {
	case "linux":
		// Only /dev/shm paths are space-checked.
		assert.True(t, canCreateOnDevShm(math.MaxUint64, "/tmp/whatever"))
		assert.False(t, canCreateOnDevShm(math.MaxUint64, "/dev/shm/huge"))
		assert.True(t, canCreateOnDevShm(1, "/dev/shm/tiny"))
	default:
		assert.True(t, canCreateOnDevShm(33333, "anything"))
	}
}
