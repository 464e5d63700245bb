// Package hcl provides the HCL implementation of config.Loader. It parses grid
// files, decodes `derivation` blocks and rewrites each block's script
// template into the engine's placeholder syntax without evaluating anything.
package hcl
