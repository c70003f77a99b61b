// Package types implements naml's TypeStore: the canonical, interned
// representation of compile-time types (spec.md §3.2). Shape is
// grounded on yaegi's itype (interp/interp.go initUniverse: "itype{cat:
// intT, name: "int", str: "int"}") — naml keeps the same
// category+name+string-form triad but drops yaegi's reflect-based
// runtime binding, since naml values live in its own heap layout
// (internal/heap), not in Go's reflect.Value.
package types

import (
	"fmt"
	"strings"
	"sync"
)

// Category is the structural kind of a type, independent of name.
type Category uint8

const (
	Invalid Category = iota
	BoolCat
	IntCat
	Int8Cat
	Int16Cat
	Int32Cat
	Int64Cat
	UintCat
	Uint8Cat
	Uint16Cat
	Uint32Cat
	Uint64Cat
	Float32Cat
	Float64Cat
	StringCat
	BytesCat
	DecimalCat
	ArrayCat
	MapCat
	StructCat
	EnumCat
	OptionCat
	InterfaceCat
	ExceptionCat
	FuncCat
	MutexCat
	RwLockCat
	AtomicCat
	ChannelCat
	ClosureCat
	NamedCat // generic instantiation: Named(def_id, args)
	NilCat
)

// DefID identifies a user-declared type definition (struct/enum/
// interface/exception), stable across monomorphized instances.
type DefID int32

// Type is the canonical, interned type representation (spec.md §3.2).
// Two Type values that denote the same type are the same pointer —
// equality is pointer equality, matching yaegi's itype pointer-interning
// discipline via the universe/scope symbol tables.
type Type struct {
	Cat    Category
	Name   string // declared name, "" for unnamed/structural types
	Str    string // canonical printed form, used as the intern key
	Def    DefID  // valid when Cat == NamedCat
	Args   []*Type
	Elem   *Type // array/option/mutex/rwlock/atomic/channel element, map value
	Key    *Type // map key
	Fields []Field
	Params []*Type // func/closure parameter types
	Ret    *Type   // func/closure return type, nil for unit
	Throws []string
	Untyped bool // numeric-literal-only types (spec.md §4.3 "numeric literals lack intrinsic type")

	// Decimal scalar parameters (SPEC_FULL.md §3.6), valid when Cat == DecimalCat.
	DecimalP, DecimalS uint8
}

// Field is one struct field or enum variant payload slot.
type Field struct {
	Name string
	Type *Type
}

func (t *Type) String() string { return t.Str }

// IsOption reports whether t is option<U> for some U.
func (t *Type) IsOption() bool { return t.Cat == OptionCat }

// Unwrap returns U for option<U>, or t itself otherwise.
func (t *Type) Unwrap() *Type {
	if t.Cat == OptionCat {
		return t.Elem
	}
	return t
}

// IsNumeric reports whether t is one of the scalar numeric categories.
func (t *Type) IsNumeric() bool {
	switch t.Cat {
	case IntCat, Int8Cat, Int16Cat, Int32Cat, Int64Cat,
		UintCat, Uint8Cat, Uint16Cat, Uint32Cat, Uint64Cat,
		Float32Cat, Float64Cat, DecimalCat:
		return true
	}
	return false
}

// Store interns Type values by their canonical string form, so that
// `S == T` checks after normalization (spec.md §4.3) reduce to pointer
// comparison, exactly as yaegi relies on for itype identity.
type Store struct {
	mu      sync.Mutex
	interned map[string]*Type
	nextDef  DefID
}

// NewStore returns an empty store seeded with nothing; call Universe to
// populate builtin scalar types.
func NewStore() *Store {
	return &Store{interned: map[string]*Type{}}
}

// Intern returns the canonical *Type equal to t, creating and storing one
// if this is the first occurrence of its Str form.
func (s *Store) Intern(t *Type) *Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.interned[t.Str]; ok {
		return existing
	}
	s.interned[t.Str] = t
	return t
}

// NewDefID allocates a fresh definition id for a struct/enum/interface/
// exception declaration.
func (s *Store) NewDefID() DefID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDef++
	return s.nextDef
}

// Named interns a generic instantiation Named(def, args) — spec.md §3.2:
// "monomorphization produces one concrete Type per distinct argument
// tuple." The Str form is built from def name and arg strings so that
// two instantiations with the same arguments collapse to one Type.
func (s *Store) Named(name string, def DefID, args []*Type) *Type {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Str
	}
	str := name
	if len(args) > 0 {
		str = fmt.Sprintf("%s<%s>", name, strings.Join(parts, ", "))
	}
	return s.Intern(&Type{Cat: NamedCat, Name: name, Str: str, Def: def, Args: args})
}

// Option interns option<elem>.
func (s *Store) Option(elem *Type) *Type {
	return s.Intern(&Type{Cat: OptionCat, Str: "option<" + elem.Str + ">", Elem: elem})
}

// Array interns array<elem>.
func (s *Store) Array(elem *Type) *Type {
	return s.Intern(&Type{Cat: ArrayCat, Str: "array<" + elem.Str + ">", Elem: elem})
}

// Map interns map<key, value>.
func (s *Store) Map(key, value *Type) *Type {
	return s.Intern(&Type{Cat: MapCat, Str: "map<" + key.Str + ", " + value.Str + ">", Key: key, Elem: value})
}

// Mutex/RwLock/Atomic/Channel intern the fixed-inner-type wrapper cells
// of spec.md §4.8.
func (s *Store) Mutex(inner *Type) *Type {
	return s.Intern(&Type{Cat: MutexCat, Str: "mutex<" + inner.Str + ">", Elem: inner})
}

func (s *Store) RwLock(inner *Type) *Type {
	return s.Intern(&Type{Cat: RwLockCat, Str: "rwlock<" + inner.Str + ">", Elem: inner})
}

func (s *Store) Atomic(inner *Type) *Type {
	return s.Intern(&Type{Cat: AtomicCat, Str: "atomic<" + inner.Str + ">", Elem: inner})
}

func (s *Store) Channel(inner *Type) *Type {
	return s.Intern(&Type{Cat: ChannelCat, Str: "channel<" + inner.Str + ">", Elem: inner})
}

// Decimal interns decimal(p, s) (SPEC_FULL.md §3.6 / spec.md open question 3).
func (s *Store) Decimal(p, sc uint8) *Type {
	return s.Intern(&Type{Cat: DecimalCat, Str: fmt.Sprintf("decimal(%d, %d)", p, sc), DecimalP: p, DecimalS: sc})
}

// Func interns a function/closure type signature.
func (s *Store) Func(params []*Type, ret *Type, throws []string) *Type {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Str
	}
	retStr := "()"
	if ret != nil {
		retStr = ret.Str
	}
	str := fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), retStr)
	if len(throws) > 0 {
		str += " throws " + strings.Join(throws, ", ")
	}
	return s.Intern(&Type{Cat: FuncCat, Str: str, Params: params, Ret: ret, Throws: throws})
}
