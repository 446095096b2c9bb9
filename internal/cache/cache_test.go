package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	nb := []byte(`{"cells": [], "nbformat": 4}`)

	key1 := Key(nb, "python3", 600*time.Second)
	assert.Len(t, key1, 64) // SHA256 hex is 64 chars

	// Same inputs should produce same key
	assert.Equal(t, key1, Key(nb, "python3", 600*time.Second))

	// Any input change should produce a different key
	assert.NotEqual(t, key1, Key([]byte(`{"cells": [1], "nbformat": 4}`), "python3", 600*time.Second))
	assert.NotEqual(t, key1, Key(nb, "ir", 600*time.Second))
	assert.NotEqual(t, key1, Key(nb, "python3", 60*time.Second))
}

func TestCache_GetPut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := New(dir)

	key := Key([]byte("nb"), "python3", time.Minute)

	_, ok := c.Get(key)
	require.False(t, ok)

	path, err := c.Put(key, []byte("executed"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, key+".ipynb"), path)

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	require.Equal(t, "executed", string(data))

	_, err = os.Stat(path + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCache_Disabled(t *testing.T) {
	c := New("")

	path, err := c.Put("key", []byte("executed"))
	require.NoError(t, err)
	require.Empty(t, path)

	_, ok := c.Get("key")
	require.False(t, ok)
	require.NoError(t, c.Clear())
}

func TestCache_Clear(t *testing.T) {
	t.Run("removes entries", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")
		c := New(dir)

		_, err := c.Put("a", []byte("1"))
		require.NoError(t, err)
		_, err = c.Put("b", []byte("2"))
		require.NoError(t, err)

		require.NoError(t, c.Clear())
		_, err = os.Stat(dir)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("removes partial writes", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")
		c := New(dir)

		_, err := c.Put("a", []byte("1"))
		require.NoError(t, err)
		// left behind by a Put interrupted before its rename
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b"+entryExt+partialExt), []byte("2"), 0644))

		_, ok := c.Get("b")
		require.False(t, ok)

		require.NoError(t, c.Clear())
		_, err = os.Stat(dir)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing directory is fine", func(t *testing.T) {
		require.NoError(t, New(filepath.Join(t.TempDir(), "absent")).Clear())
	})

	t.Run("refuses foreign files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

		err := New(dir).Clear()
		require.ErrorContains(t, err, "non-cache files")

		_, err = os.Stat(filepath.Join(dir, "notes.txt"))
		require.NoError(t, err)
	})

	t.Run("refuses subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

		require.ErrorContains(t, New(dir).Clear(), "subdirectories")
	})
}

func TestCache_Concurrent(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Put("shared", []byte("executed"))
			assert.NoError(t, err)
			_, ok := c.Get("shared")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
