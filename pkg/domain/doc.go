/*
Package domain contains the core model shared by the compiler, the runtime and
every adapter.

It is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: one parsed line of script (content, choice, gather, divert, headers) or a sentinel.
  - Graph: the compiled story; a flat node table plus an edge list of id pairs.
  - Condition: typed predicates (container status, seen counts, variables, turn) and their AND/OR composition.
  - ContainerState: visitation bookkeeping for knots and stitches.
  - Snapshot: the serializable runtime state of a walk through a story.
*/
package domain
