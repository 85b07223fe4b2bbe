// Package session keeps per-tool-session state that must survive the
// per-frame churn of temp entities.
//
// A tool session (a drag, a replace, a multi-frame placement) is identified
// by a uuid. Temp entities are destroyed and recreated as the cursor moves,
// but they carry the session id, so elevation offset, grade, and requested
// composition flags are read from the session Record rather than from the
// entity.
//
// Records are created on first use by Arena.Acquire and evicted explicitly by
// Arena.End when the tool session ends. A Sweeper evicts sessions that were
// abandoned without an End call.
package session
