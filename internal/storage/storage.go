// Package storage implements serialized random-access storage handles on top
// of a [schema.Backend].
//
// A [Volume] is mounted once per backend root and hands out [Handle]s for
// named resources. Every operation on a [Handle] is scheduled onto that
// handle's own FIFO queue and dispatched to the backend strictly one at a
// time: the n-th request's backend call is never issued before the
// (n-1)-th request has resolved. Each request resolves exactly once, through
// a [Future] and an optional callback, regardless of success or failure.
// Handles are independent of each other and share no locks.
package storage
