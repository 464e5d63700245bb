/*
Package builder turns a config.Model into a finalized process graph.

Derivations reference each other by label, so a derivation can only be hashed
once everything it references has been hashed. The builder therefore
finalizes declarations lazily, in reference order:

 1. Analysis: the declaration's expressions are scanned for function calls
    and variable references. Unknown functions, unknown variables and
    references to undeclared labels are reported before anything is
    evaluated.

 2. Dependencies first: every `derivation.<label>` the declaration references
    is finalized recursively. A label that is reached again while it is still
    being finalized closes a reference cycle, which is reported as
    graph.ErrCycleDetected.

 3. Submission: the declaration's attributes are evaluated and it is
    submitted to the graph, which resolves the script placeholders, hashes
    the result and inserts the node together with its dependency edges.

Declarations that are not referenced by anything are finalized in declaration
order. Evaluation happens entirely at build time; nothing is evaluated while
jobs run.
*/
package builder
