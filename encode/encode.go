// Package encode turns a tabular.Dataset into Arrow IPC file bytes (the
// feather v2 container). The transform is pure: it never mutates the input
// dataset, and identical inputs produce identical bytes on the same host.
//
// Two behaviors need care:
//
//   - Zone-naive temporal columns are resolved deterministically before
//     encoding. A column whose values are all exactly midnight is treated as
//     date-only and assigned the UTC zone. Any other column is interpreted at
//     the process's standard (non-DST) offset and shipped as zone-naive UTC
//     instants. The wire format has no notion of "ambiguous local time", so
//     the ambiguity has to die here, and it has to die the same way the
//     client surface's date parser resolves it.
//
//   - Generic columns whose values mix type categories fail plain
//     construction. The encoder then coerces every generic column to text and
//     retries exactly once; a second failure is terminal.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/unkn0wn-root/arrowbridge/tabular"
)

// DefaultChunkSize is the maximum number of rows per record batch when
// Options.ChunkSize is zero.
const DefaultChunkSize = 8192

// Options tune the encoder. The zero value is ready to use.
type Options struct {
	// ChunkSize caps rows per record batch; 0 => DefaultChunkSize.
	ChunkSize int
	// Location is the zone used to resolve naive temporal columns;
	// nil => time.Local. The standard (non-DST) offset of this zone is
	// applied, never the DST-adjusted one.
	Location *time.Location
	// Allocator for Arrow buffers; nil => memory.DefaultAllocator.
	Allocator memory.Allocator
}

// Encode serializes ds as an Arrow IPC file. A named row index is
// materialized into an ordinary leading column. See the package doc for the
// temporal and mixed-type rules.
func Encode(ds *tabular.Dataset, opts Options) ([]byte, error) {
	if ds == nil {
		return nil, &Error{Kind: KindInvalidDataset, Err: errors.New("nil dataset")}
	}
	if err := ds.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidDataset, Err: err}
	}

	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	cols := make([]tabular.Column, 0, len(ds.Columns)+1)
	if ds.Index != nil {
		cols = append(cols, *ds.Index)
	}
	cols = append(cols, ds.Columns...)

	blob, err := build(cols, ds.NumRows(), chunk, loc, mem, false)
	if err == nil {
		return blob, nil
	}
	var ee *Error
	if !errors.As(err, &ee) || ee.Kind != KindMixedType {
		return nil, err
	}

	// Single text-coercion retry for generic columns.
	blob, err = build(cols, ds.NumRows(), chunk, loc, mem, true)
	if err != nil {
		col := ""
		if errors.As(err, &ee) {
			col = ee.Column
		}
		return nil, &Error{Kind: KindUnencodable, Column: col, Err: err}
	}
	return blob, nil
}

// series is one resolved output column: its schema field plus a row appender
// bound to the source values.
type series struct {
	field     arrow.Field
	appendRow func(b array.Builder, i int)
}

func build(cols []tabular.Column, rows, chunk int, loc *time.Location, mem memory.Allocator, coerceGeneric bool) ([]byte, error) {
	offset := standardOffset(loc)

	out := make([]series, len(cols))
	for i := range cols {
		s, err := resolve(&cols[i], offset, coerceGeneric)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}

	fields := make([]arrow.Field, len(out))
	for i, s := range out {
		fields[i] = s.field
	}
	schema := arrow.NewSchema(fields, nil)

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("encode: open ipc writer: %w", err)
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for start := 0; start < rows; start += chunk {
		end := start + chunk
		if end > rows {
			end = rows
		}
		for ci, s := range out {
			fb := rb.Field(ci)
			for i := start; i < end; i++ {
				s.appendRow(fb, i)
			}
		}
		rec := rb.NewRecord()
		werr := w.Write(rec)
		rec.Release()
		if werr != nil {
			_ = w.Close()
			return nil, fmt.Errorf("encode: write record batch: %w", werr)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode: close ipc writer: %w", err)
	}
	return buf.Bytes(), nil
}

// resolve maps one column onto its arrow field and row appender. offset is
// the standard local offset in seconds, used for naive temporal columns.
func resolve(c *tabular.Column, offset int, coerceGeneric bool) (series, error) {
	switch c.Kind {
	case tabular.Numeric:
		return series{
			field: arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			appendRow: func(b array.Builder, i int) {
				if c.IsNull(i) {
					b.AppendNull()
					return
				}
				b.(*array.Float64Builder).Append(c.Numbers[i])
			},
		}, nil

	case tabular.Text:
		return series{
			field: arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true},
			appendRow: func(b array.Builder, i int) {
				if c.IsNull(i) {
					b.AppendNull()
					return
				}
				b.(*array.StringBuilder).Append(c.Strings[i])
			},
		}, nil

	case tabular.Temporal:
		ms, tz := resolveNaive(c, offset)
		return timestampSeries(c, ms, tz), nil

	case tabular.TemporalZoned:
		ms := make([]int64, len(c.Times))
		for i, t := range c.Times {
			ms[i] = t.UnixMilli()
		}
		return timestampSeries(c, ms, "UTC"), nil

	case tabular.Generic:
		if coerceGeneric {
			return series{
				field: arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true},
				appendRow: func(b array.Builder, i int) {
					if c.IsNull(i) {
						b.AppendNull()
						return
					}
					b.(*array.StringBuilder).Append(fmt.Sprint(c.Values[i]))
				},
			}, nil
		}
		return resolveGeneric(c)

	default:
		return series{}, &Error{Kind: KindInvalidDataset, Column: c.Name,
			Err: fmt.Errorf("unknown column kind %d", c.Kind)}
	}
}

// resolveNaive applies the date-only / local-offset rule to a naive temporal
// column and returns epoch-millisecond instants plus the arrow zone string.
func resolveNaive(c *tabular.Column, offset int) ([]int64, string) {
	allMidnight := true
	for i, t := range c.Times {
		if c.IsNull(i) {
			continue
		}
		h, m, s := t.Clock()
		if h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0 {
			allMidnight = false
			break
		}
	}

	ms := make([]int64, len(c.Times))
	if allMidnight {
		// Date-only: a bare date is UTC midnight.
		for i, t := range c.Times {
			ms[i] = wallClockIn(t, time.UTC).UnixMilli()
		}
		return ms, "UTC"
	}

	// Wall clock expressed at the fixed standard offset, shipped as naive
	// UTC instants.
	zone := time.FixedZone(formatOffset(offset), offset)
	for i, t := range c.Times {
		ms[i] = wallClockIn(t, zone).UnixMilli()
	}
	return ms, ""
}

func timestampSeries(c *tabular.Column, ms []int64, tz string) series {
	typ := &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: tz}
	return series{
		field: arrow.Field{Name: c.Name, Type: typ, Nullable: true},
		appendRow: func(b array.Builder, i int) {
			if c.IsNull(i) {
				b.AppendNull()
				return
			}
			b.(*array.TimestampBuilder).Append(arrow.Timestamp(ms[i]))
		},
	}
}

// wallClockIn reinterprets t's wall-clock fields in loc.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// standardOffset returns loc's standard UTC offset in seconds, rounded to
// minute granularity. DST raises the offset in both hemispheres, so the
// smaller of the January and July offsets is the standard one.
func standardOffset(loc *time.Location) int {
	year := time.Now().Year()
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	off := jan
	if jul < jan {
		off = jul
	}
	return off - off%60
}

// formatOffset renders a second offset as ±HH:MM.
func formatOffset(sec int) string {
	sign := "+"
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	return fmt.Sprintf("%s%02d:%02d", sign, sec/3600, (sec%3600)/60)
}
