// Package tabular holds the in-memory dataset model consumed by the encoder.
//
// A Dataset is an ordered set of named columns. Every column declares a
// logical Kind and carries exactly one backing slice matching that Kind; the
// Kind is resolved once by the caller instead of being re-inferred from the
// values on every use. Temporal columns carry wall-clock values with no
// trusted zone; how they map onto instants is the encoder's job.
//
// Datasets are treated as immutable by everything downstream: the encoder
// never writes into caller-owned slices.
package tabular

import (
	"fmt"
	"time"
)

// Kind is the declared logical type of a column.
type Kind uint8

const (
	// Numeric holds float64 values in Column.Numbers.
	Numeric Kind = iota + 1
	// Text holds string values in Column.Strings.
	Text
	// Temporal holds wall-clock time.Time values in Column.Times whose
	// Location is not trusted; the encoder resolves the zone.
	Temporal
	// TemporalZoned holds time.Time values in Column.Times whose Location
	// is authoritative.
	TemporalZoned
	// Generic holds heterogeneous values in Column.Values. Element type is
	// inferred at encode time; nil means null.
	Generic
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Temporal:
		return "temporal"
	case TemporalZoned:
		return "temporal_zoned"
	case Generic:
		return "generic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is a single named column. Exactly one backing slice must be
// populated, chosen by Kind. Nulls, when non-nil, must have the column's
// length; a true entry marks the row as null regardless of the backing value.
type Column struct {
	Name string
	Kind Kind

	Numbers []float64
	Strings []string
	Times   []time.Time
	Values  []any

	Nulls []bool
}

// NumberColumn builds a Numeric column over vals. The slice is not copied.
func NumberColumn(name string, vals []float64) Column {
	return Column{Name: name, Kind: Numeric, Numbers: vals}
}

// TextColumn builds a Text column over vals. The slice is not copied.
func TextColumn(name string, vals []string) Column {
	return Column{Name: name, Kind: Text, Strings: vals}
}

// TemporalColumn builds a zone-naive temporal column. Only the wall-clock
// fields of each value are meaningful.
func TemporalColumn(name string, vals []time.Time) Column {
	return Column{Name: name, Kind: Temporal, Times: vals}
}

// TemporalZonedColumn builds a temporal column whose Locations are trusted.
func TemporalZonedColumn(name string, vals []time.Time) Column {
	return Column{Name: name, Kind: TemporalZoned, Times: vals}
}

// GenericColumn builds a column of heterogeneous values; nil entries are
// nulls. The slice is not copied.
func GenericColumn(name string, vals []any) Column {
	return Column{Name: name, Kind: Generic, Values: vals}
}

// Len returns the column's row count from its backing slice.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Numbers)
	case Text:
		return len(c.Strings)
	case Temporal, TemporalZoned:
		return len(c.Times)
	case Generic:
		return len(c.Values)
	default:
		return 0
	}
}

// Validate checks that the backing slice matches Kind and that Nulls, if
// present, has the right length.
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("tabular: column has empty name")
	}
	var backed bool
	switch c.Kind {
	case Numeric:
		backed = c.Strings == nil && c.Times == nil && c.Values == nil
	case Text:
		backed = c.Numbers == nil && c.Times == nil && c.Values == nil
	case Temporal, TemporalZoned:
		backed = c.Numbers == nil && c.Strings == nil && c.Values == nil
	case Generic:
		backed = c.Numbers == nil && c.Strings == nil && c.Times == nil
	default:
		return fmt.Errorf("tabular: column %q has unknown kind %d", c.Name, c.Kind)
	}
	if !backed {
		return fmt.Errorf("tabular: column %q (%s) has values in a foreign backing slice", c.Name, c.Kind)
	}
	if c.Nulls != nil && len(c.Nulls) != c.Len() {
		return fmt.Errorf("tabular: column %q has %d null flags for %d rows", c.Name, len(c.Nulls), c.Len())
	}
	return nil
}

// IsNull reports whether row i is null. Generic columns additionally treat
// nil values as null.
func (c *Column) IsNull(i int) bool {
	if c.Nulls != nil && c.Nulls[i] {
		return true
	}
	return c.Kind == Generic && c.Values[i] == nil
}

// Dataset is an ordered set of columns, optionally carrying a named row
// index. The index is not part of the columns; the encoder materializes it
// into an ordinary leading column so the wire format has no implicit row
// identity.
type Dataset struct {
	Columns []Column
	Index   *Column
}

// New builds a dataset over cols. The slice is not copied.
func New(cols ...Column) *Dataset {
	return &Dataset{Columns: cols}
}

// WithIndex returns a shallow copy of d carrying idx as its named row index.
func (d *Dataset) WithIndex(idx Column) *Dataset {
	out := *d
	out.Index = &idx
	return &out
}

// NumRows returns the shared row count. Valid only after Validate.
func (d *Dataset) NumRows() int {
	if len(d.Columns) > 0 {
		return d.Columns[0].Len()
	}
	if d.Index != nil {
		return d.Index.Len()
	}
	return 0
}

// Validate checks every column plus the index and enforces a uniform row
// count across all of them.
func (d *Dataset) Validate() error {
	if len(d.Columns) == 0 && d.Index == nil {
		return fmt.Errorf("tabular: dataset has no columns")
	}
	seen := make(map[string]struct{}, len(d.Columns)+1)
	rows := -1
	check := func(c *Column) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("tabular: duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if rows == -1 {
			rows = c.Len()
		} else if c.Len() != rows {
			return fmt.Errorf("tabular: column %q has %d rows, want %d", c.Name, c.Len(), rows)
		}
		return nil
	}
	if d.Index != nil {
		if err := check(d.Index); err != nil {
			return err
		}
	}
	for i := range d.Columns {
		if err := check(&d.Columns[i]); err != nil {
			return err
		}
	}
	return nil
}
