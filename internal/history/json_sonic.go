//go:build sonic

package history

import (
	"io"

	"github.com/bytedance/sonic"
)

func jsonEncode(w io.Writer, v any) error {
	enc := sonic.ConfigDefault.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
