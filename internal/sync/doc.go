// Package sync implements the client side of batched task synchronization.
//
// Local edits never talk to the remote authority directly. Every create,
// update or delete appends one MutationEntry to a durable queue, and a sync
// cycle later drains that queue in global FIFO order (by created_at), splits
// it into fixed-size batches and pushes the batches to the remote one at a
// time. Batches are never in flight concurrently: a later batch may depend
// on an earlier one (create before update before delete of the same task),
// so batch k+1 is not sent until batch k is fully reconciled.
//
// The remote answers with one outcome per submitted item. A success marks
// the task synced and clears its queue entries. A conflict that carries
// resolution data is applied as an authoritative overwrite of the local row
// and then treated exactly like a success; the client performs no local
// merge. Anything else is a failure: the entry's retry count is bumped and,
// once the retry budget is exhausted, the owning task is surfaced as failed
// rather than silently dropped.
//
// A transport failure gives no authoritative answer for any item in the
// batch, so the whole batch is counted as failed and retried on a later
// cycle. The cycle itself keeps going with the next batch.
//
// The engine holds no state between cycles beyond what lives in the task
// and queue tables; the only in-process state is a mutex that keeps two
// cycles from running against the same queue at once.
package sync
