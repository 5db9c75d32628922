// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import (
	"fmt"
	"io"
	"sort"
)

// Dump renders the current link queues, outstanding confirmation
// records, and tracking table for operational inspection. It runs on
// the event loop, so the view is consistent; it returns once the dump
// is written or the handler is closed.
func (h *RequestHandler) Dump(w io.Writer) {
	done := make(chan struct{})
	h.post(func() {
		defer close(done)
		h.dumpLocked(w)
	})
	select {
	case <-done:
	case <-h.stopped:
	}
}

func (h *RequestHandler) dumpLocked(w io.Writer) {
	fmt.Fprintln(w, "QoS policy request handler:")
	fmt.Fprintf(w, "  confirmation timeout: %s\n", h.confirmTimeout)
	fmt.Fprintf(w, "  max policies per transaction: %d\n", h.maxBatch)

	links := make([]string, 0, len(h.queues))
	for link := range h.queues {
		links = append(links, link)
	}
	sort.Strings(links)

	fmt.Fprintln(w, "Link queues:")
	for _, link := range links {
		fmt.Fprintf(w, "  %s: %d queued\n", link, len(h.queues[link]))
		for _, req := range h.queues[link] {
			switch req.requestType {
			case requestAdd:
				fmt.Fprintf(w, "    %s add uid=%d size=%d\n", req.id, req.uid, len(req.policies))
			case requestRemove:
				fmt.Fprintf(w, "    %s remove uid=%d size=%d\n", req.id, req.uid, len(req.wireIDsToRemove))
			}
		}
	}

	fmt.Fprintln(w, "Outstanding confirmations:")
	pendingLinks := make([]string, 0, len(h.pending))
	for link := range h.pending {
		pendingLinks = append(pendingLinks, link)
	}
	sort.Strings(pendingLinks)
	for _, link := range pendingLinks {
		params := h.pending[link]
		fmt.Fprintf(w, "  %s: wire ids %v, armed at %s\n", link, params.wireIDs, params.armedAt.Format("15:04:05.000"))
	}

	fmt.Fprintf(w, "Liveness watches: %d\n", len(h.watches))
	fmt.Fprintln(w)
	h.table.Dump(w)
}

// sync blocks until every event posted before it has been handled.
// Tests use it to make the asynchronous surface deterministic.
func (h *RequestHandler) sync() {
	done := make(chan struct{})
	h.post(func() { close(done) })
	select {
	case <-done:
	case <-h.stopped:
	}
}
