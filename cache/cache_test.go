package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewLocalCache(t *testing.T) {
	cache, err := NewLocalCache(time.Second * 1)
	assert.NoError(t, err)

	err = cache.Cache.Set("available-myname", []byte("1"))
	assert.NoError(t, err)

	data, err := cache.Cache.Get("available-myname")
	assert.NoError(t, err)
	assert.Equal(t, "1", string(data))

	err = cache.Cache.Delete("available-myname")
	assert.NoError(t, err)

	_, err = cache.Cache.Get("available-myname")
	assert.Error(t, err)
}
