// Package convert coerces the loosely typed values exchange payloads carry
// (quoted numbers, json.Number, raw floats) into plain numbers.
package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToFloat64 extracts a float64 from v, returning 0 for nil or anything that
// does not parse. Quoted and bare numbers are both hot paths in kline and
// account payloads, so they get direct cases.
func ToFloat64(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	case float32:
		return float64(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := strconv.ParseFloat(fmt.Sprint(t), 64)
		return f
	default:
		return 0
	}
}
