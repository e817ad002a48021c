package xcarrier_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
)

var (
	keyName  = xcarrier.MustKey[string]("carrier_test.name")
	keyCount = xcarrier.MustKey[int]("carrier_test.count")
	keyOther = xcarrier.MustKey[string]("carrier_test.other")
)

// =============================================================================
// 读写测试
// =============================================================================

func TestWithAndGet(t *testing.T) {
	c := xcarrier.With(xcarrier.Empty(), keyName, "alice")
	c = xcarrier.With(c, keyCount, 3)

	name, ok := xcarrier.Get(c, keyName)
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	count, ok := xcarrier.Get(c, keyCount)
	require.True(t, ok)
	assert.Equal(t, 3, count)

	_, ok = xcarrier.Get(c, keyOther)
	assert.False(t, ok)
}

func TestZeroValueCarrier(t *testing.T) {
	var c xcarrier.Carrier
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
	assert.Equal(t, "{}", c.String())

	_, ok := xcarrier.Get(c, keyName)
	assert.False(t, ok)
}

func TestWith_DoesNotMutateReceiver(t *testing.T) {
	base := xcarrier.Of(keyName, "v1")
	derived := xcarrier.With(base, keyName, "v2")
	extended := xcarrier.With(base, keyCount, 7)

	got, _ := xcarrier.Get(base, keyName)
	assert.Equal(t, "v1", got, "base 不应被覆盖")
	assert.Equal(t, 1, base.Len())

	got, _ = xcarrier.Get(derived, keyName)
	assert.Equal(t, "v2", got)

	got, _ = xcarrier.Get(extended, keyName)
	assert.Equal(t, "v1", got, "派生 Carrier 应保留未覆盖的条目")
	assert.False(t, base.Has(keyCount.Name()))
}

func TestWith_ZeroKeyIgnored(t *testing.T) {
	var zero xcarrier.Key[string]
	c := xcarrier.Of(keyName, "v")
	assert.Equal(t, c, xcarrier.With(c, zero, "ignored"))
}

func TestRequire(t *testing.T) {
	_, err := xcarrier.Require(xcarrier.Empty(), keyName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, xcarrier.ErrNotFound))
	assert.Contains(t, err.Error(), keyName.Name())

	v, err := xcarrier.Require(xcarrier.Of(keyName, "x"), keyName)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestNewKey_SameNameSharesEntry(t *testing.T) {
	c := xcarrier.Of(keyCount, 42)
	again, err := xcarrier.NewKey[int]("carrier_test.count")
	require.NoError(t, err)

	v, ok := xcarrier.Get(c, again)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	// 同名不同类型的 key 无法创建，读取端不会出现类型不一致
	_, err = xcarrier.NewKey[string]("carrier_test.count")
	assert.ErrorIs(t, err, xcarrier.ErrKeyConflict)
}

func TestIdempotentRead(t *testing.T) {
	c := xcarrier.Of(keyName, "stable")
	first, _ := xcarrier.Get(c, keyName)
	second, _ := xcarrier.Get(c, keyName)
	assert.Equal(t, first, second)
}

// =============================================================================
// Without / Merge 测试
// =============================================================================

func TestWithout(t *testing.T) {
	c := xcarrier.With(xcarrier.Of(keyName, "a"), keyCount, 1)

	removed := xcarrier.Without(c, keyName.Name())
	assert.False(t, removed.Has(keyName.Name()))
	assert.True(t, removed.Has(keyCount.Name()))
	assert.True(t, c.Has(keyName.Name()), "原 Carrier 不变")

	same := xcarrier.Without(c, "absent")
	assert.Equal(t, c.Keys(), same.Keys())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		base      xcarrier.Carrier
		overlay   xcarrier.Carrier
		wantName  string
		wantCount int
		wantLen   int
	}{
		{
			name:     "空 overlay 返回 base",
			base:     xcarrier.Of(keyName, "base"),
			overlay:  xcarrier.Empty(),
			wantName: "base",
			wantLen:  1,
		},
		{
			name:     "空 base 返回 overlay",
			base:     xcarrier.Empty(),
			overlay:  xcarrier.Of(keyName, "overlay"),
			wantName: "overlay",
			wantLen:  1,
		},
		{
			name:      "冲突时 overlay 胜出",
			base:      xcarrier.With(xcarrier.Of(keyName, "base"), keyCount, 1),
			overlay:   xcarrier.Of(keyName, "overlay"),
			wantName:  "overlay",
			wantCount: 1,
			wantLen:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := xcarrier.Merge(tt.base, tt.overlay)
			name, _ := xcarrier.Get(got, keyName)
			count, _ := xcarrier.Get(got, keyCount)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantLen, got.Len())
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := xcarrier.Of(keyName, "base")
	overlay := xcarrier.Of(keyCount, 9)
	_ = xcarrier.Merge(base, overlay)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 1, overlay.Len())
}

// =============================================================================
// 遍历 / 导出测试
// =============================================================================

func TestKeysRangeStrings(t *testing.T) {
	c := xcarrier.With(xcarrier.Of(keyOther, "o"), keyName, "n")
	c = xcarrier.With(c, keyCount, 5)

	assert.Equal(t, []string{"carrier_test.count", "carrier_test.name", "carrier_test.other"}, c.Keys())

	var visited []string
	c.Range(func(name string, _ any) bool {
		visited = append(visited, name)
		return len(visited) < 2
	})
	assert.Len(t, visited, 2)

	assert.Equal(t, map[string]string{
		"carrier_test.name":  "n",
		"carrier_test.other": "o",
	}, c.Strings())

	assert.Equal(t, "{carrier_test.count=5, carrier_test.name=n, carrier_test.other=o}", c.String())
}

// =============================================================================
// 并发测试
// =============================================================================

func TestConcurrentReadsAndDerivations(t *testing.T) {
	shared := xcarrier.Of(keyName, "shared")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			own := xcarrier.With(shared, keyCount, i)
			own = xcarrier.With(own, keyOther, fmt.Sprintf("req-%d", i))

			if v, _ := xcarrier.Get(shared, keyName); v != "shared" {
				t.Errorf("shared name = %q", v)
			}
			if v, _ := xcarrier.Get(own, keyCount); v != i {
				t.Errorf("own count = %d, want %d", v, i)
			}
			if v, _ := xcarrier.Get(own, keyOther); v != fmt.Sprintf("req-%d", i) {
				t.Errorf("own other = %q", v)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, shared.Len(), "共享 Carrier 不应被任何派生操作修改")
}
