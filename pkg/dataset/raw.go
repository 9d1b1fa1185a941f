package dataset

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// RawTable is a column-major result set as returned by the driver.
type RawTable struct {
	Columns []string
	// Data holds one slice per column, aligned with Columns.
	Data [][]any
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	if t == nil || len(t.Data) == 0 {
		return 0
	}
	return len(t.Data[0])
}

// Index returns the position of column name, or -1.
func (t *RawTable) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of column name.
func (t *RawTable) Column(name string) ([]any, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}
	return t.Data[i], true
}

// Ints converts column name to integers. NULL and unparseable values become 0.
func (t *RawTable) Ints(name string) ([]int, bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]int, len(col))
	for i, v := range col {
		if f, ok := toFloat(v); ok && !math.IsNaN(f) {
			out[i] = int(f)
		}
	}
	return out, true
}

// Floats converts column name to float64. NULL values become NaN.
func (t *RawTable) Floats(name string) ([]float64, bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := toFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out, true
}

// Strings converts column name to strings and reports which values were
// NULL.
func (t *RawTable) Strings(name string) (vals []string, null []bool, ok bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, nil, false
	}
	vals = make([]string, len(col))
	null = make([]bool, len(col))
	for i, v := range col {
		s, isNull := toString(v)
		vals[i] = s
		null[i] = isNull
	}
	return vals, null, true
}

// Bytes returns column name as byte slices; NULL values are nil.
func (t *RawTable) Bytes(name string) ([][]byte, bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([][]byte, len(col))
	for i, v := range col {
		switch b := v.(type) {
		case []byte:
			out[i] = b
		case string:
			out[i] = []byte(b)
		}
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() float64 }:
		// DECIMAL columns
		return n.Float64(), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, false
	case []byte:
		return string(s), false
	default:
		if f, ok := toFloat(v); ok {
			if f == math.Trunc(f) && math.Abs(f) < 1e15 {
				return strconv.FormatInt(int64(f), 10), false
			}
			return strconv.FormatFloat(f, 'f', -1, 64), false
		}
		return "", true
	}
}
