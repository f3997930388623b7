package di

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestResolve(t *testing.T) {
	c := NewContainer()
	c.Register("answer", 42)

	v, err := Resolve[int](c, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Resolve[string](c, "answer")
	assert.Error(t, err)

	_, err = Resolve[int](c, "missing")
	assert.Error(t, err)
}

func TestCloseReverseOrder(t *testing.T) {
	c := NewContainer()
	var closed []string
	c.Register("first", closerFunc(func() error { closed = append(closed, "first"); return nil }))
	c.Register("plain", "not a closer")
	c.Register("second", closerFunc(func() error { closed = append(closed, "second"); return errors.New("boom") }))

	err := c.Close()
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"second", "first"}, closed)
}

func TestRegisterReplaceAndRemove(t *testing.T) {
	c := NewContainer()
	c.Register("b", 1)
	c.Register("a", 2)
	c.Register("b", 3)

	assert.Equal(t, []string{"a", "b"}, c.GetNames())
	assert.Equal(t, 3, c.Get("b"))

	c.Remove("b")
	assert.False(t, c.Has("b"))
	assert.Nil(t, c.Get("b"))

	c.Clear()
	assert.Empty(t, c.GetNames())
}
