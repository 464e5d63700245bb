// internal/nodeid/doc.go

/*
Package nodeid provides the content-addressed identifier of a derivation.

An ID is derived from the derivation's name and its fully resolved script
text, and is rendered in the canonical form `<digest>-<name>`, where digest
is the 64-bit xxhash of the definition written as 16 lowercase hex digits:

	3f2a9c0d11e4b7a8-build

The canonical form doubles as the name of the derivation's directory in the
work root, so names are restricted to valid single path segments.
*/
package nodeid
