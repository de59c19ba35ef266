package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSessionCacheTTLIsNotExtendedByReads(t *testing.T) {
	c := NewSessionCache(100*time.Millisecond, 10)
	c.Set("k", sessionWithRole("user"))

	time.Sleep(60 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestSessionCacheStoresNil(t *testing.T) {
	c := NewSessionCache(time.Minute, 10)
	c.Set("k", nil)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSessionCacheCapacity(t *testing.T) {
	c := NewSessionCache(time.Minute, 2)
	c.Set("a", nil)
	c.Set("b", nil)
	c.Set("c", nil)
	assert.Equal(t, 2, c.Len())
}

func TestSessionCacheStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewSessionCache(time.Minute, 10)
	c.Stop()
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
}
