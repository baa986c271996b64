// Package registry maps raw ioctl request codes to the symbolic names used
// in trace lines. Tables are built once and never mutated.
package registry

import (
	"fmt"
	"sort"

	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

// Unknown is returned for anything the tables do not cover.
const Unknown = "<unknown>"

// Table is the decode table of one device family, keyed by request number.
type Table struct {
	Family string
	names  map[uint]string
	codes  map[uint]uint
}

// Entry is one registered request.
type Entry struct {
	Name    string
	Request uint
}

func newTable(family string, entries ...Entry) *Table {
	t := &Table{
		Family: family,
		names:  make(map[uint]string, len(entries)),
		codes:  make(map[uint]uint, len(entries)),
	}
	for _, e := range entries {
		nr := kgsl.IOC_NR(e.Request)
		t.names[nr] = e.Name
		t.codes[nr] = e.Request
	}
	return t
}

// Name resolves a request by its number field, as the driver dispatches.
func (t *Table) Name(request uint) string {
	if t == nil {
		return Unknown
	}
	if name, ok := t.names[kgsl.IOC_NR(request)]; ok {
		return name
	}
	return Unknown
}

// Entries lists the table ordered by request number.
func (t *Table) Entries() []Entry {
	nrs := make([]uint, 0, len(t.codes))
	for nr := range t.codes {
		nrs = append(nrs, nr)
	}
	sort.Slice(nrs, func(i, j int) bool { return nrs[i] < nrs[j] })

	out := make([]Entry, 0, len(nrs))
	for _, nr := range nrs {
		out = append(out, Entry{Name: t.names[nr], Request: t.codes[nr]})
	}
	return out
}

// Registry holds the tables of every supported family.
type Registry struct {
	tables map[string]*Table
}

func New() *Registry {
	r := &Registry{tables: make(map[string]*Table)}
	for _, family := range Families() {
		t, err := ForFamily(family)
		if err != nil {
			panic(fmt.Sprintf("registry: %v", err))
		}
		r.tables[family] = t
	}
	return r
}

// Table returns the table of family or nil.
func (r *Registry) Table(family string) *Table {
	return r.tables[family]
}

// NameFor never fails: unknown families and requests resolve to Unknown.
func (r *Registry) NameFor(family string, request uint) string {
	return r.tables[family].Name(request)
}

func Families() []string {
	return []string{types.FamilyKGSL3D, types.FamilyKGSL2D, types.FamilyPMEM}
}
