// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package transport

import (
	"sort"
	"sync"
	"time"

	"grimm.is/airqos/internal/clock"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/qos"
)

const (
	// DefaultSimMaxPolicies matches the transaction capacity of common
	// access-point firmware.
	DefaultSimMaxPolicies = 16

	DefaultSimConfirmDelay = 50 * time.Millisecond
)

// SimOptions configures the simulated access point.
type SimOptions struct {
	Logger       *logging.Logger
	Clock        clock.Clock
	MaxPolicies  int
	ConfirmDelay time.Duration
}

// Simulator is an in-memory qos.Transport. Every accepted policy is
// confirmed automatically after ConfirmDelay on the injected clock, so
// a MockClock makes confirmation timing fully scriptable.
type Simulator struct {
	log          *logging.Logger
	clk          clock.Clock
	maxPolicies  int
	confirmDelay time.Duration

	mu       sync.Mutex
	handler  qos.ConfirmationHandler
	active   map[string]map[qos.WireID]struct{}
	scripted map[qos.WireID]qos.SubmitStatus
	failNext error
	silent   bool
}

// NewSimulator returns a simulator with empty link state.
func NewSimulator(opts SimOptions) *Simulator {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	maxPolicies := opts.MaxPolicies
	if maxPolicies <= 0 {
		maxPolicies = DefaultSimMaxPolicies
	}
	confirmDelay := opts.ConfirmDelay
	if confirmDelay <= 0 {
		confirmDelay = DefaultSimConfirmDelay
	}
	return &Simulator{
		log:          log.WithComponent("sim"),
		clk:          clk,
		maxPolicies:  maxPolicies,
		confirmDelay: confirmDelay,
		active:       make(map[string]map[qos.WireID]struct{}),
		scripted:     make(map[qos.WireID]qos.SubmitStatus),
	}
}

// ScriptStatus forces the synchronous status returned for a wire ID on
// its next submission.
func (s *Simulator) ScriptStatus(id qos.WireID, status qos.SubmitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripted[id] = status
}

// FailNext makes the next transaction fail as a whole.
func (s *Simulator) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SetSilent suppresses automatic confirmations, leaving submissions to
// time out on the dispatcher's watchdog.
func (s *Simulator) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// Active returns the wire IDs currently programmed on a link, sorted.
func (s *Simulator) Active(link string) []qos.WireID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]qos.WireID, 0, len(s.active[link]))
	for id := range s.active[link] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Simulator) MaxPoliciesPerRequest() int { return s.maxPolicies }

func (s *Simulator) SetConfirmationHandler(fn qos.ConfirmationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

func (s *Simulator) AddPolicies(link string, policies []*qos.Policy) ([]qos.PolicyStatus, error) {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	linkSet := s.active[link]
	if linkSet == nil {
		linkSet = make(map[qos.WireID]struct{})
		s.active[link] = linkSet
	}

	results := make([]qos.PolicyStatus, len(policies))
	var sent []qos.WireID
	for i, p := range policies {
		id := p.WireID()
		status := qos.SubmitSent
		if scripted, ok := s.scripted[id]; ok {
			status = scripted
			delete(s.scripted, id)
		} else if _, ok := linkSet[id]; ok {
			status = qos.SubmitAlreadyActive
		}
		if status == qos.SubmitSent {
			linkSet[id] = struct{}{}
			sent = append(sent, id)
		}
		results[i] = qos.PolicyStatus{WireID: id, Status: status}
	}
	s.scheduleConfirmation(link, sent)
	s.mu.Unlock()

	s.log.Debug("Add transaction", "link", link, "size", len(policies), "sent", len(sent))
	return results, nil
}

func (s *Simulator) RemovePolicies(link string, ids []qos.WireID) ([]qos.PolicyStatus, error) {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	linkSet := s.active[link]

	results := make([]qos.PolicyStatus, len(ids))
	var sent []qos.WireID
	for i, id := range ids {
		status := qos.SubmitError
		if _, ok := linkSet[id]; ok {
			delete(linkSet, id)
			status = qos.SubmitSent
			sent = append(sent, id)
		}
		results[i] = qos.PolicyStatus{WireID: id, Status: status}
	}
	s.scheduleConfirmation(link, sent)
	s.mu.Unlock()

	s.log.Debug("Remove transaction", "link", link, "size", len(ids), "sent", len(sent))
	return results, nil
}

// takeFailure consumes a scripted whole-transaction failure. Caller
// holds the lock.
func (s *Simulator) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// scheduleConfirmation arms the confirmation timer for the policies
// forwarded to the simulated access point. Caller holds the lock.
func (s *Simulator) scheduleConfirmation(link string, sent []qos.WireID) {
	if len(sent) == 0 || s.silent {
		return
	}
	s.clk.AfterFunc(s.confirmDelay, func() {
		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler == nil {
			return
		}
		results := make([]qos.PolicyStatus, len(sent))
		for i, id := range sent {
			results[i] = qos.PolicyStatus{WireID: id, Status: qos.SubmitSent}
		}
		handler(link, results)
	})
}
