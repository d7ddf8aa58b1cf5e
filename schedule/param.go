package schedule

import "reflect"

// AccessKind classifies how a system touches a type, for the purpose of
// computing intra-stage ordering: two systems that both only read a type
// may run concurrently, but a reader and a writer (or two writers) of
// the same type must be serialized.
//
// Grounded on world_view.rs's SystemParam access descriptor (reads/
// writes/withs/withouts), narrowed to the reads-vs-writes distinction
// that actually drives scheduling.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
)

// Access names one type a system reads or writes.
type Access struct {
	Type string
	Kind AccessKind
}

// TypeName returns the identifier scheduling uses for T, so component
// and resource access declarations agree with each other regardless of
// which package declared T.
func TypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// ReadAccess returns an Access descriptor for a system that only reads T.
func ReadAccess[T any]() Access { return Access{Type: TypeName[T](), Kind: AccessRead} }

// WriteAccess returns an Access descriptor for a system that mutates T.
func WriteAccess[T any]() Access { return Access{Type: TypeName[T](), Kind: AccessWrite} }

// conflicts reports whether two access descriptors on the same type
// force their owning systems to be serialized.
func (a Access) conflicts(b Access) bool {
	if a.Type != b.Type {
		return false
	}
	return a.Kind == AccessWrite || b.Kind == AccessWrite
}
