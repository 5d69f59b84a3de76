package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("AreAddressesEqual ignores case", func(t *testing.T) {
		assert.True(t, AreAddressesEqual("0xC488736C09ab088e5203b48d973dca30581d6118", "0xc488736c09ab088e5203b48d973dca30581d6118"))
		assert.False(t, AreAddressesEqual("0xaa", "0xbb"))
	})
	t.Run("SnakeCase replaces separators", func(t *testing.T) {
		assert.Equal(t, "fetcher_window_requested", SnakeCase("fetcher.window.requested"))
		assert.Equal(t, "rpc_url", SnakeCase("rpc-url"))
	})
	t.Run("Map keeps order and passes the index", func(t *testing.T) {
		out := Map([]string{"a", "b"}, func(s string, i uint64) string {
			return s + string(rune('0'+i))
		})
		assert.Equal(t, []string{"a0", "b1"}, out)
	})
	t.Run("Filter keeps matching elements", func(t *testing.T) {
		out := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
		assert.Equal(t, []int{2, 4}, out)
	})
}
