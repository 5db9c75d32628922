// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/airqos/internal/clock"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/metrics"
)

// DefaultConfirmationTimeout is the local watchdog for the asynchronous
// confirmation event. The control channel enforces its own ~1000 ms
// bound, so this is a safety net that unblocks the link queue, never a
// retry.
const DefaultConfirmationTimeout = 1500 * time.Millisecond

// syntheticUID marks requests generated internally (link-added replay).
// They have no caller waiting and no liveness handle.
const syntheticUID int32 = -1

// LinkProvider enumerates the links currently eligible to carry
// application traffic.
type LinkProvider interface {
	ActiveLinks() []string
}

// ResultCallback receives the per-policy status list for an add
// request. The list matches the request's policies in length and order.
type ResultCallback func(statuses []RequestStatus)

// resultSink wraps a caller's callback and guarantees it fires at most
// once, no matter how many links the request fanned out to.
type resultSink struct {
	fn      ResultCallback
	metrics *metrics.Collector
}

func (s *resultSink) send(statuses []RequestStatus) {
	if s.fn == nil {
		return
	}
	s.fn(statuses)
	s.metrics.ResultDelivered()
	// Drop the reference so the caller is never notified twice.
	s.fn = nil
}

func (s *resultSink) sendUniform(size int, status RequestStatus) {
	s.send(uniformStatusList(size, status))
}

// aggregateResult reassembles the status lists of an add request that
// was split into several transport-sized batches. The caller's callback
// fires once, after every batch has delivered its first result. Only
// the event loop touches it.
type aggregateResult struct {
	sink      *resultSink
	statuses  []RequestStatus
	remaining int
}

// batchSink returns a once-only sink covering statuses[offset:offset+size].
func (a *aggregateResult) batchSink(offset, size int) *resultSink {
	return &resultSink{fn: func(statuses []RequestStatus) {
		copy(a.statuses[offset:offset+size], statuses)
		a.remaining--
		if a.remaining == 0 {
			a.sink.send(a.statuses)
		}
	}}
}

type requestType int

const (
	requestAdd requestType = iota
	requestRemove
)

func (t requestType) String() string {
	if t == requestAdd {
		return "add"
	}
	return "remove"
}

// queuedRequest is one operation waiting in a link queue. A single
// logical caller request is shared across every link it fanned out to.
type queuedRequest struct {
	id          string
	requestType requestType
	policies    []*Policy // add only
	policyIDs   []int     // remove only
	sink        *resultSink
	liveness    Liveness
	uid         int32

	// Set during pre-processing and first processing.
	processedOnAnyLink bool
	initialStatusList  []RequestStatus
	wireIDsToRemove    []WireID
}

// pendingConfirmation is the single outstanding record for a link that
// has policies awaiting an access-point confirmation.
type pendingConfirmation struct {
	wireIDs []WireID // sorted
	armedAt time.Time
}

func newPendingConfirmation(wireIDs []WireID, now time.Time) *pendingConfirmation {
	sorted := append([]WireID(nil), wireIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &pendingConfirmation{wireIDs: sorted, armedAt: now}
}

// matches reports whether the event's reported wire-ID set, sorted,
// equals the expected set exactly.
func (p *pendingConfirmation) matches(results []PolicyStatus) bool {
	if len(results) != len(p.wireIDs) {
		return false
	}
	reported := make([]WireID, len(results))
	for i, r := range results {
		reported[i] = r.WireID
	}
	sort.Slice(reported, func(i, j int) bool { return reported[i] < reported[j] })
	for i := range reported {
		if reported[i] != p.wireIDs[i] {
			return false
		}
	}
	return true
}

// Options configures a RequestHandler.
type Options struct {
	Logger    *logging.Logger
	Clock     clock.Clock
	Links     LinkProvider
	Transport Transport
	Metrics   *metrics.Collector

	// ConfirmationTimeout defaults to DefaultConfirmationTimeout.
	ConfirmationTimeout time.Duration
}

// RequestHandler is the QoS policy request dispatch engine. All state
// is owned by a single event-loop goroutine; public entry points post
// closures onto that loop, so no handler ever runs concurrently with
// another.
type RequestHandler struct {
	log            *logging.Logger
	clk            clock.Clock
	links          LinkProvider
	transport      Transport
	metrics        *metrics.Collector
	confirmTimeout time.Duration
	maxBatch       int

	table   *TrackingTable
	queues  map[string][]*queuedRequest
	pending map[string]*pendingConfirmation
	watches map[int32]*livenessWatch

	events   chan func()
	stopped  chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

// NewRequestHandler constructs the dispatch engine and starts its event
// loop. The transport's confirmation handler is registered here, before
// any submission can happen.
func NewRequestHandler(opts Options) *RequestHandler {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	timeout := opts.ConfirmationTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}

	h := &RequestHandler{
		log:            log,
		clk:            clk,
		links:          opts.Links,
		transport:      opts.Transport,
		metrics:        opts.Metrics,
		confirmTimeout: timeout,
		maxBatch:       opts.Transport.MaxPoliciesPerRequest(),
		table:          NewTrackingTable(WireIDMin, WireIDMax),
		queues:         make(map[string][]*queuedRequest),
		pending:        make(map[string]*pendingConfirmation),
		watches:        make(map[int32]*livenessWatch),
		events:         make(chan func(), 64),
		stopped:        make(chan struct{}),
		loopDone:       make(chan struct{}),
	}
	h.transport.SetConfirmationHandler(func(link string, results []PolicyStatus) {
		h.post(func() { h.handleConfirmation(link, results) })
	})
	go h.run()
	return h
}

// Close stops the event loop and releases every liveness watch. Pending
// requests are dropped; no further callbacks are delivered.
func (h *RequestHandler) Close() {
	h.stopOnce.Do(func() { close(h.stopped) })
	<-h.loopDone
}

func (h *RequestHandler) run() {
	defer close(h.loopDone)
	for {
		select {
		case f := <-h.events:
			f()
		case <-h.stopped:
			for _, watch := range h.watches {
				close(watch.stop)
			}
			return
		}
	}
}

// post serializes a handler onto the event loop. Posts after Close are
// discarded.
func (h *RequestHandler) post(f func()) {
	select {
	case h.events <- f:
	case <-h.stopped:
	}
}

// QueueAddRequest submits a request to add a list of new QoS policies.
// The callback fires exactly once with one status per input policy. The
// liveness handle may be nil for callers without termination signals.
func (h *RequestHandler) QueueAddRequest(policies []*Policy, uid int32, liveness Liveness, callback ResultCallback) {
	h.metrics.RequestQueued("add")
	h.post(func() {
		h.log.Info("Queueing add request", "uid", uid, "size", len(policies))
		h.queueAddLocked(policies, uid, liveness, callback)
		h.processNextOnAllLinks()
	})
}

// queueAddLocked runs on the event loop. Oversized requests are split
// into transport-sized batches that share one aggregated, once-only
// result delivery.
func (h *RequestHandler) queueAddLocked(policies []*Policy, uid int32, liveness Liveness, callback ResultCallback) {
	batches := divideIntoBatches(policies, h.maxBatch)
	sink := &resultSink{fn: callback, metrics: h.metrics}
	var agg *aggregateResult
	if len(batches) > 1 {
		agg = &aggregateResult{
			sink:      sink,
			statuses:  make([]RequestStatus, len(policies)),
			remaining: len(batches),
		}
	}

	offset := 0
	for _, batch := range batches {
		batchSink := sink
		if agg != nil {
			batchSink = agg.batchSink(offset, len(batch))
		}
		offset += len(batch)

		req := &queuedRequest{
			id:          uuid.NewString(),
			requestType: requestAdd,
			policies:    batch,
			sink:        batchSink,
			liveness:    liveness,
			uid:         uid,
		}
		h.queueOnAllLinks(req)
	}
}

// QueueRemoveRequest submits a request to remove previously added
// policies. Removal is owner-scoped and idempotent: IDs not owned by
// uid are ignored.
func (h *RequestHandler) QueueRemoveRequest(policyIDs []int, uid int32) {
	req := &queuedRequest{
		id:          uuid.NewString(),
		requestType: requestRemove,
		policyIDs:   policyIDs,
		sink:        &resultSink{metrics: h.metrics},
		uid:         uid,
	}
	h.metrics.RequestQueued("remove")
	h.post(func() {
		h.log.Info("Queueing remove request", "request", req.id, "uid", uid, "size", len(policyIDs))
		h.queueOnAllLinks(req)
		h.processNextOnAllLinks()
	})
}

// QueueRemoveAllRequest removes every policy owned by uid.
func (h *RequestHandler) QueueRemoveAllRequest(uid int32) {
	h.metrics.RequestQueued("remove_all")
	h.post(func() { h.queueRemoveAllLocked(uid) })
}

// queueRemoveAllLocked runs on the event loop. Oversized owner sets are
// split into transport-sized batches.
func (h *RequestHandler) queueRemoveAllLocked(uid int32) {
	owned := h.table.OwnedBy(uid)
	h.log.Info("Queueing remove-all request", "uid", uid, "owned", len(owned))
	if len(owned) == 0 {
		return
	}
	for _, batch := range divideIntoBatches(owned, h.maxBatch) {
		req := &queuedRequest{
			id:          uuid.NewString(),
			requestType: requestRemove,
			policyIDs:   batch,
			sink:        &resultSink{metrics: h.metrics},
			uid:         uid,
		}
		h.queueOnAllLinks(req)
	}
	h.processNextOnAllLinks()
}

// OnLinkAdded replays the full tracked policy set to a newly available
// link. The synthetic requests are flagged as already admitted so they
// bypass registry admission and caller notification.
func (h *RequestHandler) OnLinkAdded(link string) {
	h.post(func() {
		policies := h.table.AllPolicies()
		h.log.Info("Queueing tracked policies on new link", "link", link, "size", len(policies))
		if len(policies) == 0 {
			return
		}
		h.metrics.PolicyReplay(len(policies))
		for _, batch := range divideIntoBatches(policies, h.maxBatch) {
			req := &queuedRequest{
				id:          uuid.NewString(),
				requestType: requestAdd,
				policies:    batch,
				sink:        &resultSink{metrics: h.metrics},
				uid:         syntheticUID,

				// All policies are already in the table.
				processedOnAnyLink: true,
				initialStatusList:  uniformStatusList(len(batch), StatusTracking),
			}
			h.enqueue(link, req)
		}
		h.processNextIfPossible(link)
	})
}

// queueOnAllLinks pre-processes a request against the tracking table
// exactly once, then fans it out to every eligible link queue. Registry
// mutation happens here, before fan-out, so concurrent queries observe
// a consistent view regardless of link count.
func (h *RequestHandler) queueOnAllLinks(req *queuedRequest) {
	links := h.links.ActiveLinks()

	switch req.requestType {
	case requestAdd:
		if len(links) == 0 {
			// Fast fail: no registry mutation, no partial state.
			req.sink.sendUniform(len(req.policies), StatusInsufficientResources)
			return
		}
		statusList := h.table.AddPolicies(req.policies, req.uid)
		h.metrics.SetTrackedPolicies(h.table.Size())
		accepted := filterByStatus(req.policies, statusList)
		if len(accepted) == 0 {
			// Table rejected the whole request: full, or every policy
			// already tracked.
			req.sink.send(statusList)
			return
		}
		req.initialStatusList = statusList

	case requestRemove:
		wireIDs := h.table.Translate(req.policyIDs, req.uid)
		if len(wireIDs) == 0 {
			// None of these policies are tracked for this owner.
			return
		}
		h.table.RemovePolicies(req.policyIDs, req.uid)
		h.metrics.SetTrackedPolicies(h.table.Size())
		req.wireIDsToRemove = wireIDs
		h.unregisterLivenessWatchIfNeeded(req.uid)
		h.metrics.SetLivenessWatches(len(h.watches))
		if len(links) == 0 {
			// The registry is already consistent; there is no link to
			// program and nobody waiting on a callback.
			return
		}
	}

	for _, link := range links {
		h.enqueue(link, req)
	}
}

func (h *RequestHandler) enqueue(link string, req *queuedRequest) {
	h.queues[link] = append(h.queues[link], req)
	h.metrics.SetQueueDepth(link, len(h.queues[link]))
}

func (h *RequestHandler) processNextOnAllLinks() {
	links := make([]string, 0, len(h.queues))
	for link := range h.queues {
		links = append(links, link)
	}
	sort.Strings(links)
	for _, link := range links {
		h.processNextIfPossible(link)
	}
}

// processNextIfPossible advances one link queue if the link is idle.
// This is the sole entry point into a submission, which is what
// enforces the single-flight invariant.
func (h *RequestHandler) processNextIfPossible(link string) {
	if _, busy := h.pending[link]; busy {
		// A confirmation is still outstanding on this link.
		return
	}
	queue := h.queues[link]
	if len(queue) == 0 {
		return
	}
	req := queue[0]
	h.queues[link] = queue[1:]
	h.metrics.SetQueueDepth(link, len(h.queues[link]))

	switch req.requestType {
	case requestAdd:
		h.processAdd(link, req)
	case requestRemove:
		h.processRemove(link, req)
	}
}

func (h *RequestHandler) processAdd(link string, req *queuedRequest) {
	previouslyProcessed := req.processedOnAnyLink
	req.processedOnAnyLink = true
	h.log.Debug("Processing add request", "request", req.id, "link", link, "size", len(req.policies))

	if !alive(req.liveness) {
		h.log.Error("Requesting application died before processing", "request", req.id, "uid", req.uid)
		h.processNextIfPossible(link)
		return
	}

	// Exclude policies the table rejected during pre-processing.
	statusList := append([]RequestStatus(nil), req.initialStatusList...)
	policyList := filterByStatus(req.policies, req.initialStatusList)

	// On later links, also exclude policies that an earlier link's
	// rejection already evicted from the table.
	if previouslyProcessed && req.uid != syntheticUID {
		policyList = h.table.FilterUntracked(policyList, req.uid)
	}

	if len(policyList) == 0 {
		h.log.Error("All policies were removed during filtering", "request", req.id, "link", link)
		h.processNextIfPossible(link)
		return
	}

	results, err := h.transport.AddPolicies(link, policyList)
	if err != nil {
		h.log.Error("Synchronous submission failed", "request", req.id, "link", link, "error", err)
		h.metrics.Submission(link, "error")
		if !previouslyProcessed {
			statusList = h.failSubmittedPolicies(statusList, req.policies, req.uid)
			req.sink.send(statusList)
		}
		h.processNextIfPossible(link)
		return
	}
	h.metrics.Submission(link, "ok")

	if !previouslyProcessed {
		// First processing: merge the synchronous result and notify the
		// caller. Later links must not re-notify.
		statusList = h.mergeSubmitResults(statusList, results, req.policies, req.uid)
		req.sink.send(statusList)
		h.registerLivenessWatchIfNeeded(req.uid, req.liveness)
		h.metrics.SetLivenessWatches(len(h.watches))
	}

	h.armOrAdvance(link, results)
}

func (h *RequestHandler) processRemove(link string, req *queuedRequest) {
	h.log.Debug("Processing remove request", "request", req.id, "link", link, "size", len(req.wireIDsToRemove))
	results, err := h.transport.RemovePolicies(link, req.wireIDsToRemove)
	if err != nil {
		h.log.Error("Synchronous removal failed", "request", req.id, "link", link, "error", err)
		h.metrics.Submission(link, "error")
		h.processNextIfPossible(link)
		return
	}
	h.metrics.Submission(link, "ok")
	h.armOrAdvance(link, results)
}

// armOrAdvance arms the confirmation watchdog if any policy in the
// batch was forwarded to the access point, otherwise advances the
// queue. At most one pending record and one timer exist per link:
// processNextIfPossible never submits while one is armed.
func (h *RequestHandler) armOrAdvance(link string, results []PolicyStatus) {
	var awaiting []WireID
	for _, r := range results {
		if r.Status == SubmitSent {
			awaiting = append(awaiting, r.WireID)
		}
	}
	if len(awaiting) == 0 {
		h.processNextIfPossible(link)
		return
	}

	params := newPendingConfirmation(awaiting, h.clk.Now())
	h.pending[link] = params
	h.clk.AfterFunc(h.confirmTimeout, func() {
		h.post(func() { h.checkStalledConfirmation(link, params) })
	})
}

// handleConfirmation runs on the event loop for every asynchronous
// confirmation event delivered by the transport.
func (h *RequestHandler) handleConfirmation(link string, results []PolicyStatus) {
	h.log.Info("Received confirmation event", "link", link, "size", len(results))
	params, ok := h.pending[link]
	if !ok {
		h.log.Info("Confirmation was not expected on this link", "link", link)
		h.metrics.Confirmation(link, "unsolicited")
		return
	}
	if !params.matches(results) {
		// Stale or unsolicited event: log and discard, state unchanged.
		h.log.Info("Confirmation was unsolicited", "link", link, "results", results)
		h.metrics.Confirmation(link, "unsolicited")
		return
	}
	h.log.Info("Expected confirmation was received", "link", link)
	h.metrics.Confirmation(link, "matched")
	delete(h.pending, link)
	h.processNextIfPossible(link)
}

// checkStalledConfirmation runs when the watchdog fires. If the armed
// record is still the current one, the confirmation is presumed lost:
// the link is declared free and the queue advances. Affected policies
// keep whatever status they already received.
func (h *RequestHandler) checkStalledConfirmation(link string, params *pendingConfirmation) {
	current, ok := h.pending[link]
	if !ok || current != params {
		// A matching event already drained this record.
		return
	}
	h.log.Error("Confirmation timed out", "link", link, "expected", params.wireIDs,
		"armed_at", params.armedAt)
	h.metrics.Confirmation(link, "timeout")
	delete(h.pending, link)
	h.processNextIfPossible(link)
}

// failSubmittedPolicies marks every policy the table had accepted as
// failed and evicts it, after a whole-batch submission failure.
func (h *RequestHandler) failSubmittedPolicies(statusList []RequestStatus, policies []*Policy, uid int32) []RequestStatus {
	var rejected []int
	for i := range statusList {
		if statusList[i] != StatusTracking {
			// Already carries a terminal status from admission.
			continue
		}
		statusList[i] = StatusFailureUnknown
		rejected = append(rejected, policies[i].PolicyID)
	}
	h.table.RemovePolicies(rejected, uid)
	h.metrics.SetTrackedPolicies(h.table.Size())
	return statusList
}

// mergeSubmitResults merges the synchronous per-policy transport result
// into the admission status list, evicting policies the transport
// rejected. results[k] corresponds to the k-th policy that admission
// accepted.
func (h *RequestHandler) mergeSubmitResults(statusList []RequestStatus, results []PolicyStatus, policies []*Policy, uid int32) []RequestStatus {
	resultIndex := 0
	var rejected []int
	for i := range statusList {
		if statusList[i] != StatusTracking {
			continue
		}
		status := requestStatusFromSubmit(results[resultIndex].Status)
		if status != StatusTracking {
			rejected = append(rejected, policies[i].PolicyID)
		}
		statusList[i] = status
		resultIndex++
	}
	if len(rejected) > 0 {
		h.table.RemovePolicies(rejected, uid)
		h.metrics.SetTrackedPolicies(h.table.Size())
	}
	return statusList
}

// filterByStatus returns the policies whose admission status is
// StatusTracking, preserving order.
func filterByStatus(policies []*Policy, statusList []RequestStatus) []*Policy {
	var filtered []*Policy
	for i, status := range statusList {
		if status == StatusTracking {
			filtered = append(filtered, policies[i])
		}
	}
	return filtered
}
