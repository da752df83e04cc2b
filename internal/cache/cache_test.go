package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapcache/internal/heap"
)

// recorder is a producer that echoes the key and counts calls per key.
type recorder struct {
	calls map[string]int
	total int
}

func newRecorder() *recorder {
	return &recorder{calls: map[string]int{}}
}

func (r *recorder) produce(key []byte) string {
	r.calls[string(key)]++
	r.total++
	return "value:" + string(key)
}

func newCache(t *testing.T, limit int) (*Cache[string], *[]string) {
	t.Helper()

	var released []string
	c, err := New(Config[string]{
		Limit:   limit,
		OnEvict: func(v string) { released = append(released, v) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, &released
}

func mustGet(t *testing.T, c *Cache[string], key string, p Producer[string]) string {
	t.Helper()

	v, err := c.Get([]byte(key), p)
	require.NoError(t, err, "get %q", key)
	return v
}

func TestNew(t *testing.T) {
	for _, limit := range []int{0, -3} {
		c, err := New(Config[int]{Limit: limit})
		assert.ErrorIs(t, err, ErrInvalidArgument, "limit %d", limit)
		assert.Nil(t, c)
	}

	c, err := New(Config[int]{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, c.Limit())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 101, c.recency.MaxSize())
}

func TestGetNullParameters(t *testing.T) {
	c, _ := newCache(t, 10)
	r := newRecorder()

	var nilCache *Cache[string]
	_, err := nilCache.Get([]byte("k"), r.produce)
	assert.ErrorIs(t, err, ErrNullParameter)

	_, err = c.Get(nil, r.produce)
	assert.ErrorIs(t, err, ErrNullParameter)

	_, err = c.Get([]byte("k"), nil)
	assert.ErrorIs(t, err, ErrNullParameter)

	_, err = c.Get([]byte{}, r.produce)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, r.total)
	assert.Equal(t, 0, c.Len())
}

func TestGetCallsProducerOnMiss(t *testing.T) {
	c, _ := newCache(t, 100)
	r := newRecorder()

	v := mustGet(t, c, "I am a key", r.produce)
	assert.Equal(t, "value:I am a key", v)
	assert.Equal(t, 1, r.total)
	assert.Equal(t, 1, c.Len())
}

func TestGetProducesAtMostOncePerResidentKey(t *testing.T) {
	c, _ := newCache(t, 100)
	r := newRecorder()

	for i := 0; i < 10; i++ {
		v := mustGet(t, c, "I am a key", r.produce)
		assert.Equal(t, "value:I am a key", v)
	}

	assert.Equal(t, 1, r.total)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, Stats{Hits: 9, Misses: 1}, c.Stats())
}

func TestGetCachesMultipleItems(t *testing.T) {
	c, _ := newCache(t, 100)
	r := newRecorder()

	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("I am a key %d", i)
		assert.Equal(t, "value:"+key, mustGet(t, c, key, r.produce))
		assert.Equal(t, i, r.total)
		assert.Equal(t, i, c.Len())
	}
}

func TestGetCopiesKey(t *testing.T) {
	c, _ := newCache(t, 4)
	r := newRecorder()

	buf := []byte("abc")
	_, err := c.Get(buf, r.produce)
	require.NoError(t, err)

	buf[0] = 'x'
	assert.True(t, c.Contains([]byte("abc")))
	assert.False(t, c.Contains([]byte("xbc")))
}

func TestLRUEviction(t *testing.T) {
	c, released := newCache(t, 2)
	r := newRecorder()

	mustGet(t, c, "a", r.produce)
	mustGet(t, c, "b", r.produce)

	mustGet(t, c, "c", r.produce)
	assert.False(t, c.Contains([]byte("a")), "expected a to be evicted")
	assert.True(t, c.Contains([]byte("b")))
	assert.True(t, c.Contains([]byte("c")))

	mustGet(t, c, "d", r.produce)
	assert.False(t, c.Contains([]byte("b")), "expected b to be evicted")
	assert.True(t, c.Contains([]byte("c")))
	assert.True(t, c.Contains([]byte("d")))

	assert.Equal(t, []string{"value:a", "value:b"}, *released)
	assert.Equal(t, uint64(2), c.Stats().Evictions)
}

func TestLRUEvictionAfterTouch(t *testing.T) {
	c, _ := newCache(t, 2)
	r := newRecorder()

	mustGet(t, c, "a", r.produce)
	mustGet(t, c, "b", r.produce)

	// Touch a so b becomes LRU.
	mustGet(t, c, "a", r.produce)

	mustGet(t, c, "c", r.produce)
	assert.False(t, c.Contains([]byte("b")), "expected b to be evicted")
	assert.True(t, c.Contains([]byte("a")))
	assert.True(t, c.Contains([]byte("c")))
}

func TestGetClearsOldestItems(t *testing.T) {
	keys := []string{
		"key 1", "test key 2", "another key", "so many keys", "cant get enough",
		"key madness", "just key", "foo", "bar", "fop",
	}
	c, _ := newCache(t, 2)
	r := newRecorder()

	mustGet(t, c, keys[0], r.produce)
	mustGet(t, c, keys[1], r.produce)

	for i := 2; i < len(keys); i++ {
		assert.Equal(t, "value:"+keys[i], mustGet(t, c, keys[i], r.produce))
		assert.Equal(t, i+1, r.total)
		assert.Equal(t, 2, c.Len())
		assert.False(t, c.Contains([]byte(keys[i-2])), "expected %q to be evicted", keys[i-2])
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c, _ := newCache(t, 5)
	r := newRecorder()

	for i := 1; i <= 5; i++ {
		mustGet(t, c, fmt.Sprint(i), r.produce)
	}
	for i := 1; i <= 4; i++ {
		mustGet(t, c, fmt.Sprint(i), r.produce)
	}
	assert.Equal(t, 5, r.total)

	mustGet(t, c, "6", r.produce)
	assert.Equal(t, 6, r.total)
	assert.Equal(t, 5, c.Len())
	assert.False(t, c.Contains([]byte("5")), "expected the only stale key to be evicted")
	for _, k := range []string{"1", "2", "3", "4", "6"} {
		assert.True(t, c.Contains([]byte(k)), "expected %q to remain", k)
	}
}

func TestGetRefreshesRecencyInReverse(t *testing.T) {
	keys := []string{"key 1", "test key 2", "another key", "so many keys", "cant get enough", "key madness"}
	c, _ := newCache(t, 5)
	r := newRecorder()

	for _, k := range keys[:5] {
		mustGet(t, c, k, r.produce)
	}
	// Refresh in reverse; keys[4] becomes the oldest.
	for i := 4; i >= 0; i-- {
		mustGet(t, c, keys[i], r.produce)
	}
	mustGet(t, c, keys[5], r.produce)

	assert.Equal(t, 6, r.total)
	assert.False(t, c.Contains([]byte(keys[4])))
}

func TestEvictedKeyIsProducedAgain(t *testing.T) {
	c, _ := newCache(t, 1)
	r := newRecorder()

	mustGet(t, c, "a", r.produce)
	mustGet(t, c, "b", r.produce)
	mustGet(t, c, "a", r.produce)

	assert.Equal(t, 2, r.calls["a"])
	assert.Equal(t, 1, c.Len())
}

func TestLenNeverExceedsLimit(t *testing.T) {
	const limit = 7
	c, released := newCache(t, limit)
	r := newRecorder()

	for i := 0; i < 200; i++ {
		mustGet(t, c, fmt.Sprint(i%31), r.produce)
		require.LessOrEqual(t, c.Len(), limit)
	}
	assert.Equal(t, r.total-limit, len(*released))
}

func TestKeys(t *testing.T) {
	c, _ := newCache(t, 3)
	r := newRecorder()

	for _, k := range []string{"a", "b", "c", "a"} {
		mustGet(t, c, k, r.produce)
	}

	got := c.Keys()
	require.Len(t, got, 3)
	assert.Equal(t, []byte("b"), got[0])
	assert.Equal(t, []byte("c"), got[1])
	assert.Equal(t, []byte("a"), got[2])
}

func TestInstancesDoNotShareClock(t *testing.T) {
	first, _ := newCache(t, 2)
	second, _ := newCache(t, 2)
	r := newRecorder()

	mustGet(t, first, "a", r.produce)
	for i := 0; i < 5; i++ {
		mustGet(t, second, fmt.Sprint(i), r.produce)
	}
	mustGet(t, first, "b", r.produce)

	assert.Equal(t, uint64(2), first.clock)
	assert.Equal(t, uint64(5), second.clock)
}

func TestClose_ReleasesEveryResidentPayload(t *testing.T) {
	c, err := New(Config[*int]{Limit: 4, OnEvict: nil})
	require.NoError(t, err)

	released := map[*int]int{}
	c.onEvict = func(p *int) { released[p]++ }

	for i := 0; i < 6; i++ {
		_, err := c.Get([]byte(fmt.Sprint(i)), func([]byte) *int { v := i; return &v })
		require.NoError(t, err)
	}
	require.Len(t, released, 2)

	require.NoError(t, c.Close())
	assert.Len(t, released, 6)
	for p, calls := range released {
		assert.Equal(t, 1, calls, "payload %d released %d times", *p, calls)
	}
}

func TestClose_IdempotentAndPreventsMutation(t *testing.T) {
	c, err := New(Config[string]{Limit: 1})
	require.NoError(t, err)
	r := newRecorder()

	mustGet(t, c, "k", r.produce)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Get([]byte("k"), r.produce)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, c.Contains([]byte("k")))
	assert.Nil(t, c.Keys())
	assert.Equal(t, 1, r.total)
}

func TestGetRollsBackWhenRecencyIsFull(t *testing.T) {
	c, released := newCache(t, 3)
	r := newRecorder()

	mustGet(t, c, "a", r.produce)
	require.NoError(t, c.recency.Resize(1))

	_, err := c.Get([]byte("b"), r.produce)
	assert.ErrorIs(t, err, heap.ErrOverflow)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.recency.Size())
	assert.False(t, c.Contains([]byte("b")))
	assert.True(t, c.Contains([]byte("a")))
	assert.Equal(t, []string{"value:b"}, *released)

	// Once there is room again the key goes through the miss path as new.
	require.NoError(t, c.recency.Resize(4))
	assert.Equal(t, "value:b", mustGet(t, c, "b", r.produce))
	assert.Equal(t, 2, r.calls["b"])
	assert.Equal(t, 2, c.Len())
}
