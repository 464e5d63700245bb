// Package template splits derivation scripts into literal fragments and
// ${...} placeholders, and reassembles them once every placeholder has been
// resolved to text.
//
// A script such as
//
//	cat ${derivation.a} > ${out}
//
// parses into the fragments ["cat ", " > ", ""] and the placeholders
// ["derivation.a", "out"]. There is always exactly one more fragment than
// there are placeholders. The sequence "$${" is an escape for a literal "${".
package template
