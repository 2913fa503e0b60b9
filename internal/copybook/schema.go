// File path: internal/copybook/schema.go
package copybook

// Usage selects the storage encoding of an elementary field.
type Usage string

const (
	UsageDisplay Usage = "DISPLAY"
	UsageComp    Usage = "COMP"
	UsageComp3   Usage = "COMP-3"
)

// Field is one node in the copybook schema tree. The root is a synthetic
// level-0 record container; its children are the 01-level entries. Offsets
// and lengths are byte positions within one record, computed by the parser
// once the whole tree is known. ByteLength covers a single occurrence; a
// field declared OCCURS n consumes ByteLength*n bytes of the record.
type Field struct {
	Level     int      `json:"level"`
	Name      string   `json:"name"`
	Pic       string   `json:"pic,omitempty"`
	Usage     Usage    `json:"usage,omitempty"`
	Occurs    int      `json:"occurs,omitempty"`
	Redefines string   `json:"redefines,omitempty"`
	Signed    bool     `json:"signed,omitempty"`
	Digits    int      `json:"digits,omitempty"`
	Scale     int      `json:"scale,omitempty"`
	Numeric   bool     `json:"numeric,omitempty"`
	Line      int      `json:"line,omitempty"`
	ByteOff   int      `json:"byte_offset"`
	ByteLen   int      `json:"byte_length"`
	Children  []*Field `json:"children,omitempty"`
}

// Group reports whether the field is a structural group rather than an
// elementary item.
func (f *Field) Group() bool { return len(f.Children) > 0 }

// Count returns the occurrence count, treating unset OCCURS as one.
func (f *Field) Count() int {
	if f.Occurs > 1 {
		return f.Occurs
	}
	return 1
}

// TotalLength is the record space consumed by the field including all
// OCCURS repetitions.
func (f *Field) TotalLength() int { return f.ByteLen * f.Count() }

// RecordLength is the declared byte length of one record under this schema.
func (f *Field) RecordLength() int { return f.TotalLength() }

// Walk visits the field and every descendant in declaration order.
func (f *Field) Walk(visit func(*Field)) {
	visit(f)
	for _, child := range f.Children {
		child.Walk(visit)
	}
}

// FieldCount counts the concrete fields in the tree, excluding the synthetic
// root.
func (f *Field) FieldCount() int {
	count := 0
	f.Walk(func(node *Field) {
		if node.Level > 0 {
			count++
		}
	})
	return count
}

// layout assigns byte offsets and group lengths. A group's length is the sum
// of its children's total lengths, except that REDEFINES children overlay the
// storage of their target sibling and never advance the running offset.
// Returns the group's single-occurrence length.
func (f *Field) layout(base int) (int, *Error) {
	f.ByteOff = base
	if !f.Group() {
		return f.ByteLen, nil
	}
	cursor := base
	end := base
	for i, child := range f.Children {
		start := cursor
		if child.Redefines != "" {
			target := findSibling(f.Children[:i], child.Redefines)
			if target == nil {
				return 0, structureErrorf(child.Line, "REDEFINES target %s not found among preceding siblings of %s", child.Redefines, child.Name)
			}
			start = target.ByteOff
		}
		length, err := child.layout(start)
		if err != nil {
			return 0, err
		}
		child.ByteLen = length
		stop := start + child.TotalLength()
		if stop > end {
			end = stop
		}
		if child.Redefines == "" {
			cursor = stop
		}
	}
	f.ByteLen = end - base
	return f.ByteLen, nil
}

func findSibling(siblings []*Field, name string) *Field {
	for _, sibling := range siblings {
		if sibling.Name == name {
			return sibling
		}
	}
	return nil
}
