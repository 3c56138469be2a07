package encode

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/unkn0wn-root/arrowbridge/tabular"
)

// category is the inferred element class of a generic column.
type category uint8

const (
	catNumber category = iota + 1
	catText
	catBool
	catTime
)

func (c category) String() string {
	switch c {
	case catNumber:
		return "number"
	case catText:
		return "text"
	case catBool:
		return "bool"
	case catTime:
		return "time"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// resolveGeneric infers a single element category for a generic column and
// builds its series. Values spanning more than one category, or of a type no
// category covers, fail with KindMixedType; the caller's coercion retry is
// the recovery path.
func resolveGeneric(c *tabular.Column) (series, error) {
	var cat category
	for i, v := range c.Values {
		if c.IsNull(i) {
			continue
		}
		vc, ok := categorize(v)
		if !ok {
			return series{}, &Error{Kind: KindMixedType, Column: c.Name,
				Err: fmt.Errorf("unsupported element type %T at row %d", v, i)}
		}
		if cat == 0 {
			cat = vc
			continue
		}
		if vc != cat {
			return series{}, &Error{Kind: KindMixedType, Column: c.Name,
				Err: fmt.Errorf("mixes %s and %s (row %d)", cat, vc, i)}
		}
	}
	if cat == 0 {
		// All-null column; ship as nullable text.
		cat = catText
	}

	switch cat {
	case catNumber:
		return series{
			field: arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			appendRow: func(b array.Builder, i int) {
				if c.IsNull(i) {
					b.AppendNull()
					return
				}
				f, _ := toFloat64(c.Values[i])
				b.(*array.Float64Builder).Append(f)
			},
		}, nil

	case catText:
		return series{
			field: arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true},
			appendRow: func(b array.Builder, i int) {
				if c.IsNull(i) {
					b.AppendNull()
					return
				}
				b.(*array.StringBuilder).Append(c.Values[i].(string))
			},
		}, nil

	case catBool:
		return series{
			field: arrow.Field{Name: c.Name, Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
			appendRow: func(b array.Builder, i int) {
				if c.IsNull(i) {
					b.AppendNull()
					return
				}
				b.(*array.BooleanBuilder).Append(c.Values[i].(bool))
			},
		}, nil

	default: // catTime
		ms := make([]int64, len(c.Values))
		for i, v := range c.Values {
			if t, ok := v.(time.Time); ok {
				ms[i] = t.UnixMilli()
			}
		}
		return timestampSeries(c, ms, "UTC"), nil
	}
}

func categorize(v any) (category, bool) {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return catNumber, true
	case string:
		return catText, true
	case bool:
		return catBool, true
	case time.Time:
		return catTime, true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
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
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
