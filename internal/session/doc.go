// Package session implements the interactive state of the map client: the
// metric catalog, the weight sliders, start/end point selection, the route
// overlay and the status banner, plus the orchestrator that turns them into
// route queries.
//
// All state is owned by one goroutine. Network calls run elsewhere and hand
// their results back through a Dispatcher, so every mutation happens in a
// serialized callback and no locking is needed. Each query attempt takes a new
// generation number; a response whose generation is no longer current is
// dropped.
package session
