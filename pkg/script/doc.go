// Package script models the static dialogue graph the conversation engine
// walks: a read-only table of nodes validated once at load time.
//
// Scripts are data, not code. They can be authored three ways: the fluent
// Builder, a YAML file (LoadFile / FromYAML), or the built-in lead-capture
// script (Default). All three paths end in Compile, which enforces the
// closed-graph invariant so the engine never has to recover from a dangling
// transition at runtime.
package script
