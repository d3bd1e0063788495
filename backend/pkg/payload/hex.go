package payload

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHex decodes operator supplied hex such as "01 00 64 09", "01:00:64:09"
// or "0x01006409".
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "", "\n", "").Replace(s)

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}

	return b, nil
}

// FormatHex renders b as space separated upper-case byte pairs.
func FormatHex(b []byte) string {
	var sb strings.Builder

	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}

		fmt.Fprintf(&sb, "%02X", c)
	}

	return sb.String()
}
