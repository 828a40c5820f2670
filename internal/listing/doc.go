// Package listing implements the tag filter and "load more" pagination state
// machine behind the tools listing page.
//
// A Controller is Idle or Loading. Selecting a different tag discards every
// accumulated page and fetches page 1 for the new tag; LoadMore fetches the
// page named by the last page's continuation token and appends it. Each fetch
// carries the generation current when it was issued, and a response whose
// generation has been superseded by a later tag change is dropped. A failed
// fetch leaves the last valid tag and pages in place and records the error
// together with the operation Retry will re-issue.
//
// Renderers read state through Snapshot or receive every change through
// Subscribe.
package listing
