// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

// Liveness is a termination token associated with a requesting
// application. Done is closed (or becomes receivable) exactly once when
// the application terminates. A context.Context satisfies this
// interface, as does any session object exposing a closed-on-exit
// channel.
type Liveness interface {
	Done() <-chan struct{}
}

// livenessWatch pairs an owner's liveness handle with the goroutine
// watching it. stop tears the watcher down without treating the owner
// as dead.
type livenessWatch struct {
	uid      int32
	liveness Liveness
	stop     chan struct{}
}

// alive reports whether the handle has not yet terminated. A nil handle
// never terminates (used by synthetic, ownerless requests).
func alive(l Liveness) bool {
	if l == nil {
		return true
	}
	select {
	case <-l.Done():
		return false
	default:
		return true
	}
}

// registerLivenessWatchIfNeeded starts watching the owner's liveness
// handle, provided the owner holds at least one tracked policy and is
// not already watched. Must be called from the event loop.
func (h *RequestHandler) registerLivenessWatchIfNeeded(uid int32, liveness Liveness) {
	if liveness == nil {
		return
	}
	if _, ok := h.watches[uid]; ok {
		// Owner is already linked to a watch.
		return
	}
	if !h.table.HasOwner(uid) {
		// Owner holds no tracked policies.
		return
	}

	watch := &livenessWatch{uid: uid, liveness: liveness, stop: make(chan struct{})}
	h.watches[uid] = watch
	go func() {
		select {
		case <-liveness.Done():
			h.post(func() { h.handleOwnerDeath(watch) })
		case <-watch.stop:
		}
	}()
}

// unregisterLivenessWatchIfNeeded releases the owner's watch once the
// owner no longer holds any tracked policy. Must be called from the
// event loop.
func (h *RequestHandler) unregisterLivenessWatchIfNeeded(uid int32) {
	watch, ok := h.watches[uid]
	if !ok {
		// Owner was never watched, or already unlinked.
		return
	}
	if h.table.HasOwner(uid) {
		// Owner still holds tracked policies.
		return
	}
	close(watch.stop)
	delete(h.watches, uid)
}

// handleOwnerDeath runs on the event loop when a watched owner
// terminates. It releases the watch and synthesizes a remove-all so
// that no policy outlives its owning application.
func (h *RequestHandler) handleOwnerDeath(watch *livenessWatch) {
	current, ok := h.watches[watch.uid]
	if !ok || current != watch {
		// The watch was already released; a removal emptied the
		// owner's policy set before the death notification arrived.
		return
	}
	h.log.Info("Application terminated, releasing its policies", "uid", watch.uid)
	delete(h.watches, watch.uid)
	h.queueRemoveAllLocked(watch.uid)
}
