package types

// Universe returns the interned builtin scalar types and the errorT-style
// sentinel, directly following the literal table in yaegi's
// initUniverse() (interp/interp.go) — one *Type per predeclared Go-like
// scalar, built the same "cat/name/str" way.
func Universe(s *Store) map[string]*Type {
	mk := func(cat Category, name string) *Type {
		return s.Intern(&Type{Cat: cat, Name: name, Str: name})
	}
	m := map[string]*Type{
		"bool":    mk(BoolCat, "bool"),
		"int":     mk(IntCat, "int"),
		"int8":    mk(Int8Cat, "int8"),
		"int16":   mk(Int16Cat, "int16"),
		"int32":   mk(Int32Cat, "int32"),
		"int64":   mk(Int64Cat, "int64"),
		"uint":    mk(UintCat, "uint"),
		"uint8":   mk(Uint8Cat, "uint8"),
		"uint16":  mk(Uint16Cat, "uint16"),
		"uint32":  mk(Uint32Cat, "uint32"),
		"uint64":  mk(Uint64Cat, "uint64"),
		"float32": mk(Float32Cat, "float32"),
		"float64": mk(Float64Cat, "float64"),
		"string":  mk(StringCat, "string"),
		"bytes":   mk(BytesCat, "bytes"),
	}
	m["nil"] = s.Intern(&Type{Cat: NilCat, Str: "nil", Untyped: true})
	m["untyped int"] = s.Intern(&Type{Cat: IntCat, Str: "untyped int", Untyped: true})
	m["untyped float"] = s.Intern(&Type{Cat: Float64Cat, Str: "untyped float", Untyped: true})
	m["untyped bool"] = s.Intern(&Type{Cat: BoolCat, Str: "untyped bool", Untyped: true})
	return m
}

// UntypedInt and UntypedBool name the defaulting types referenced by
// spec.md §4.3 ("numeric literals ... default to int").
func UntypedInt(u map[string]*Type) *Type  { return u["untyped int"] }
func UntypedBool(u map[string]*Type) *Type { return u["untyped bool"] }
