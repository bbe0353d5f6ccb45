// Package runtimeabi names the C runtime's external symbols (§6): every
// function the emitted LLVM module calls but never defines, resolved at
// link time against the QL runtime's ref-counted heap and SQLite-backed
// query engine.
//
// Grounded on original_source/compiler/src/codegen/mod.rs's
// external_functions table, which declares this same symbol set against
// the runtime crate before emitting any call to them.
package runtimeabi

// Symbol names the runtime's C ABI exposes. Every one of these is declared
// as an external function in the emitted module (see internal/codegen) and
// never defined there — they're satisfied by linking against the runtime
// at the external link step named in §6.
const (
	// Heap lifecycle, generic over any ref-counted object (string, array,
	// or struct-with-owned-fields all share one header layout).
	AddRef    = "qlrt_add_ref"
	RemoveRef = "qlrt_remove_ref"

	// String.
	StringNew    = "qlrt_string_new"
	StringLen    = "qlrt_string_len"
	StringData   = "qlrt_string_data"
	StringConcat = "qlrt_string_concat"

	// Array, parameterized at the call site by the element's typeinfo
	// pointer (see TypeInfoGlobal) so one runtime entrypoint serves every
	// element type.
	ArrayNew    = "qlrt_array_new"
	ArrayAppend = "qlrt_array_append"
	ArrayPop    = "qlrt_array_pop"
	ArrayLength = "qlrt_array_length"
	ArrayGet    = "qlrt_array_get"

	// Struct allocation, parameterized by a typeinfo pointer describing
	// field offsets and which fields need copy/drop thunks.
	StructAlloc = "qlrt_struct_alloc"

	// Builtins.
	PrintString  = "qlrt_print_string"
	PrintInteger = "qlrt_print_integer"
	PrintBool    = "qlrt_print_bool"
	InputInteger = "qlrt_input_integer"
	InputString  = "qlrt_input_string"

	// Query lifecycle (§4.5/§6): prepare returns an opaque statement
	// handle, bind_* sets one parameter by position, execute runs a
	// mutating statement and returns the affected row count, step/
	// column_row drive a Select's result cursor, finalize releases the
	// statement handle.
	QueryPrepare     = "qlrt_query_prepare"
	QueryBindInteger = "qlrt_query_bind_integer"
	QueryBindString  = "qlrt_query_bind_string"
	QueryBindBool    = "qlrt_query_bind_bool"
	QueryExecute     = "qlrt_query_execute"
	QueryStep        = "qlrt_query_step"
	QueryColumnRow   = "qlrt_query_column_row"
	QueryFinalize    = "qlrt_query_finalize"

	// Process lifecycle: runtime_init connects every declared datasource
	// before __ql__user_main runs; panic aborts with a message on an
	// unrecoverable runtime error (e.g. a failed downcast the verifier
	// should have caught, or a SQL error).
	RuntimeInit = "qlrt_init"
	RuntimeExit = "qlrt_shutdown"
	Panic       = "qlrt_panic"
)

// TypeInfoGlobal returns the name of the global typeinfo record codegen
// emits for a named struct, consumed by StructAlloc/ArrayNew/AddRef/
// RemoveRef to know a value's field layout and ownership mask.
func TypeInfoGlobal(structName string) string {
	return "__ql_typeinfo_" + structName
}

// UserMainSymbol is the name the AST's "main" function is renamed to, so a
// small generated trampoline can own the process-level "main" symbol and
// sequence runtime init/shutdown around the user's entrypoint. Mirrors
// original_source/compiler/src/codegen/mod.rs's emit_main, which performs
// exactly this rename-and-wrap.
const UserMainSymbol = "__ql__user_main"
