package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/errors"
)

func TestClosureCacheAddRel(t *testing.T) {
	c := NewClosureCache("test:supertype")

	added, err := c.AddRel("a", "b")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = c.AddRel("a", "b")
	require.NoError(t, err)
	assert.False(t, added, "repeated relation is not an error")

	_, err = c.AddRel("a", "a")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestClosureCacheTransitivity(t *testing.T) {
	c := NewClosureCache("test:supertype")

	for _, rel := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"b", "e"}} {
		_, err := c.AddRel(rel[0], rel[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"b", "c", "d", "e"}, c.FwdClosure("a"))
	assert.Equal(t, []string{"c", "d", "e"}, c.FwdClosure("b"))
	assert.Empty(t, c.FwdClosure("d"))

	assert.Equal(t, []string{"a", "b", "c"}, c.RevClosure("d"))
	assert.Equal(t, []string{"a"}, c.RevClosure("b"))
	assert.Empty(t, c.RevClosure("a"))
}

func TestClosureCacheNeverContainsSelf(t *testing.T) {
	c := NewClosureCache("test:supertype")

	_, err := c.AddRel("a", "b")
	require.NoError(t, err)
	_, err = c.AddRel("b", "c")
	require.NoError(t, err)

	// Closing the loop would put each value in its own closure.
	_, err = c.AddRel("c", "a")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	for _, v := range c.Values() {
		assert.NotContains(t, c.FwdClosure(v), v)
		assert.NotContains(t, c.RevClosure(v), v)
	}
}

func TestClosureCacheSymmetry(t *testing.T) {
	c := NewClosureCache("test:supertype")

	for _, rel := range [][2]string{{"a", "b"}, {"b", "c"}, {"a", "d"}} {
		_, err := c.AddRel(rel[0], rel[1])
		require.NoError(t, err)
	}

	for _, v1 := range c.Values() {
		for _, v2 := range c.FwdClosure(v1) {
			assert.Contains(t, c.RevClosure(v2), v1)
		}
	}
}

func TestClosureCacheRemoveVal(t *testing.T) {
	c := NewClosureCache("test:supertype")

	for _, rel := range [][2]string{{"a", "b"}, {"b", "c"}} {
		_, err := c.AddRel(rel[0], rel[1])
		require.NoError(t, err)
	}

	assert.True(t, c.RemoveVal("b"))
	assert.Empty(t, c.FwdClosure("a"))
	assert.Empty(t, c.RevClosure("c"))
	assert.False(t, c.RemoveVal("b"), "second removal is a no-op")
	assert.Empty(t, c.Values())
}

func TestClosureCacheValues(t *testing.T) {
	c := NewClosureCache("test:supertype")

	_, err := c.AddRel("x", "y")
	require.NoError(t, err)
	_, err = c.AddRel("y", "z")
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "z"}, c.Values())
}
