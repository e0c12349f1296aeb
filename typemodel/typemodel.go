// Package typemodel is a tagged variant over named/array/pointer/type-
// variable types plus declaration records for classes, structs, interfaces,
// enums, methods and fields. The analytical core (cfg, dataflow) never
// inspects this package; it exists only so instruction operands and method
// signatures produced by an upstream metadata/type extractor have somewhere
// to point.
package typemodel

import "github.com/google/uuid"

// TypeKind discriminates the Type tagged union.
type TypeKind int

const (
	// Named is a basic named type, optionally with generic arguments
	// (e.g. List<string>).
	Named TypeKind = iota
	// Array is an array/slice of some element type.
	Array
	// Pointer is a pointer/reference to some pointee type.
	Pointer
	// TypeVariable is an unbound generic parameter.
	TypeVariable
)

// Type is the closed sum of type shapes referenced from instruction operands
// and method signatures.
type Type struct {
	Kind TypeKind

	// Name is set when Kind == Named or Kind == TypeVariable.
	Name string
	// GenericArgs is set when Kind == Named and the type is generic.
	GenericArgs []Type
	// Element is set when Kind == Array or Kind == Pointer.
	Element *Type
}

// DeclKind discriminates the declaration-record tagged union.
type DeclKind int

const (
	ClassDecl DeclKind = iota
	StructDecl
	InterfaceDecl
	EnumDecl
	MethodDecl
	FieldDecl
)

// Decl is a declaration record: a class, struct, interface, enum, method or
// field. Every declaration carries a stable UUID so it can be referenced
// from a cache or metrics sink without re-deriving identity from its name.
type Decl struct {
	ID   uuid.UUID `json:"id"`
	Kind DeclKind  `json:"kind"`
	Name string    `json:"name"`

	// GenericParams names the declaration's own generic parameters, if any.
	GenericParams []string `json:"generic_params,omitempty"`

	// Fields is populated for ClassDecl/StructDecl.
	Fields []Decl `json:"fields,omitempty"`
	// FieldType is populated for FieldDecl.
	FieldType *Type `json:"field_type,omitempty"`

	// Methods is populated for ClassDecl/StructDecl/InterfaceDecl.
	Methods []Decl `json:"methods,omitempty"`
	// Params/Return are populated for MethodDecl.
	Params []Type `json:"params,omitempty"`
	Return *Type  `json:"return,omitempty"`

	// EnumValues is populated for EnumDecl.
	EnumValues []string `json:"enum_values,omitempty"`
}

// NewDecl allocates a declaration record with a fresh identity.
func NewDecl(kind DeclKind, name string) Decl {
	return Decl{ID: uuid.New(), Kind: kind, Name: name}
}
