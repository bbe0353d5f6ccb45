// Package qlerr defines the compiler's error taxonomy.
//
// Every IR-building and emission function in the core returns a plain
// error; when that error originates inside this module it is always an
// *Error so callers can switch on Kind with errors.As.
package qlerr

import "fmt"

// Kind classifies a compiler diagnostic into the families described by the
// specification: Resolution, Redefinition, Type, Control, Capability, and
// Emitter errors.
type Kind int

const (
	// Resolution errors: undefined datasource/table/column/struct/
	// variable/function/method/loop-label.
	UndefinedDatasource Kind = iota
	UndefinedTable
	UndefinedColumn
	UndefinedStruct
	UndefinedVariable
	UndefinedFunction
	UndefinedMethod
	InvalidLoopLabel

	// Redefinition errors.
	DuplicateDatasourceDeclaration
	DuplicateTableDefinition
	DuplicateFunctionDefinition
	DuplicateVariableDefinition
	DuplicateFieldInitialization

	// Type errors.
	IncompatibleOperands
	NonBoolCondition
	HeterogeneousArray
	NonIntegralArrayIndex
	NonArrayIndex
	NonStructFieldAccess
	AnonymousStructFieldAccess
	UndefinedStructFieldAccess
	IncompatibleColumnValue
	NonPrimitiveColumnType
	IncompatibleInsertData
	MistypedReturnValue
	AmbiguousVariableType
	AmbiguousReturnType
	MismatchingCallArity
	IncompatibleArgumentType
	NotCallable
	IncompatibleStructInitialization
	IncompatibleAssignment

	// Control errors.
	InexhaustiveReturnPaths
	BreakOutsideLoop
	ContinueOutsideLoop

	// Capability errors.
	ReadonlyTableWrite
	ReadonlyDatasourceWrite
	InvalidMainSignature

	// Emitter errors: internal failures propagated with context.
	BuilderFailure
	ModuleVerificationFailure
	TargetFailure
	WriteFailure
)

var kindNames = map[Kind]string{
	UndefinedDatasource:               "UndefinedDatasource",
	UndefinedTable:                    "UndefinedTable",
	UndefinedColumn:                   "UndefinedColumn",
	UndefinedStruct:                   "UndefinedStruct",
	UndefinedVariable:                 "UndefinedVariable",
	UndefinedFunction:                 "UndefinedFunction",
	UndefinedMethod:                   "UndefinedMethod",
	InvalidLoopLabel:                  "InvalidLoopLabel",
	DuplicateDatasourceDeclaration:    "DuplicateDatasourceDeclaration",
	DuplicateTableDefinition:          "DuplicateTableDefinition",
	DuplicateFunctionDefinition:       "DuplicateFunctionDefinition",
	DuplicateVariableDefinition:       "DuplicateVariableDefinition",
	DuplicateFieldInitialization:      "DuplicateFieldInitialization",
	IncompatibleOperands:              "IncompatibleOperands",
	NonBoolCondition:                  "NonBoolCondition",
	HeterogeneousArray:                "HeterogeneousArray",
	NonIntegralArrayIndex:             "NonIntegralArrayIndex",
	NonArrayIndex:                     "NonArrayIndex",
	NonStructFieldAccess:              "NonStructFieldAccess",
	AnonymousStructFieldAccess:        "AnonymousStructFieldAccess",
	UndefinedStructFieldAccess:        "UndefinedStructFieldAccess",
	IncompatibleColumnValue:           "IncompatibleColumnValue",
	NonPrimitiveColumnType:            "NonPrimitiveColumnType",
	IncompatibleInsertData:            "IncompatibleInsertData",
	MistypedReturnValue:               "MistypedReturnValue",
	AmbiguousVariableType:             "AmbiguousVariableType",
	AmbiguousReturnType:               "AmbiguousReturnType",
	MismatchingCallArity:              "MismatchingCallArity",
	IncompatibleArgumentType:          "IncompatibleArgumentType",
	NotCallable:                       "NotCallable",
	IncompatibleStructInitialization:  "IncompatibleStructInitialization",
	IncompatibleAssignment:            "IncompatibleAssignment",
	InexhaustiveReturnPaths:           "InexhaustiveReturnPaths",
	BreakOutsideLoop:                  "BreakOutsideLoop",
	ContinueOutsideLoop:               "ContinueOutsideLoop",
	ReadonlyTableWrite:                "ReadonlyTableWrite",
	ReadonlyDatasourceWrite:           "ReadonlyDatasourceWrite",
	InvalidMainSignature:              "InvalidMainSignature",
	BuilderFailure:                    "BuilderFailure",
	ModuleVerificationFailure:         "ModuleVerificationFailure",
	TargetFailure:                     "TargetFailure",
	WriteFailure:                      "WriteFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownError"
}

// Error is the single exported diagnostic type. Entity carries the name of
// the offending identifier (function, table, variable, ...) when one
// applies; it may be empty for emitter-internal errors.
type Error struct {
	Kind   Kind
	Entity string
	Detail string
	Err    error // wrapped cause, for emitter errors that propagate a lower-level failure
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Detail, e.Err)
	case e.Entity != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Detail)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Entity)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error naming a single offending entity.
func New(kind Kind, entity string) *Error {
	return &Error{Kind: kind, Entity: entity}
}

// Newf builds an *Error with a formatted detail message.
func Newf(kind Kind, entity, format string, args ...any) *Error {
	return &Error{Kind: kind, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an emitter-family *Error around a lower-level cause.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
