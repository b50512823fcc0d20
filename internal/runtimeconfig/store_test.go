package runtimeconfig

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedAccessorsParseAndFallBack(t *testing.T) {
	s := New(map[string]string{
		"INT_OK":    "42",
		"INT_BAD":   "not-a-number",
		"FLOAT_OK":  "0.75",
		"FLOAT_BAD": "zero point five",
		"BOOL_OK":   "true",
		"BOOL_BAD":  "yep",
	})

	assert.Equal(t, 42, s.GetInt("INT_OK", 7))
	assert.Equal(t, 7, s.GetInt("INT_BAD", 7))
	assert.Equal(t, 7, s.GetInt("INT_MISSING", 7))

	assert.Equal(t, 0.75, s.GetFloat("FLOAT_OK", 1.5))
	assert.Equal(t, 1.5, s.GetFloat("FLOAT_BAD", 1.5))

	assert.True(t, s.GetBool("BOOL_OK", false))
	assert.False(t, s.GetBool("BOOL_BAD", false))
	assert.True(t, s.GetBool("BOOL_MISSING", true))
}

func TestGetReturnsDefaultForMissingKey(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "fallback", s.Get("NOPE", "fallback"))
	assert.False(t, s.Has("NOPE"))

	s.Set("NOPE", "here")
	assert.True(t, s.Has("NOPE"))
	assert.Equal(t, "here", s.Get("NOPE", "fallback"))
}

func TestSetMirrorsIntoEnvironment(t *testing.T) {
	s := New(nil)
	t.Setenv("RTCONF_MIRROR_TEST", "old")
	s.Set("RTCONF_MIRROR_TEST", "new")
	assert.Equal(t, "new", os.Getenv("RTCONF_MIRROR_TEST"))
}

func TestAllReturnsIndependentSnapshot(t *testing.T) {
	s := New(map[string]string{"A": "1"})
	snap := s.All()
	s.Set("A", "2")
	s.Set("B", "3")
	assert.Equal(t, map[string]string{"A": "1"}, snap)
}

func TestNewFromEnvironmentSkipsUnsetKeys(t *testing.T) {
	t.Setenv("RTCONF_ENV_SET", "value")
	s := NewFromEnvironment([]string{"RTCONF_ENV_SET", "RTCONF_ENV_UNSET"})
	assert.True(t, s.Has("RTCONF_ENV_SET"))
	assert.False(t, s.Has("RTCONF_ENV_UNSET"))
	assert.Equal(t, "value", s.Get("RTCONF_ENV_SET", ""))
}

func TestReloadFromEnvironment(t *testing.T) {
	s := New(map[string]string{"RTCONF_RELOAD": "stale"})
	t.Setenv("RTCONF_RELOAD", "fresh")
	s.ReloadFromEnvironment([]string{"RTCONF_RELOAD", "RTCONF_RELOAD_MISSING"})
	assert.Equal(t, "fresh", s.Get("RTCONF_RELOAD", ""))
	assert.False(t, s.Has("RTCONF_RELOAD_MISSING"))
}

func TestUpdateIsVisibleAtomically(t *testing.T) {
	s := New(map[string]string{"K1": "a", "K2": "a"})
	s.Update(map[string]string{"K1": "b", "K2": "b"})
	snap := s.All()
	require.Equal(t, "b", snap["K1"])
	require.Equal(t, "b", snap["K2"])
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Set("CONCURRENT_KEY", fmt.Sprintf("v%d", n))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.All()
			_ = s.GetInt("CONCURRENT_KEY", 0)
		}()
	}
	wg.Wait()
	assert.True(t, s.Has("CONCURRENT_KEY"))
}
