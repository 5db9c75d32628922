// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"context"
	"net/http"
	"net/netip"
	"sync"

	"github.com/gorilla/websocket"

	"grimm.is/airqos/internal/errors"
	"grimm.is/airqos/internal/qos"
)

// firstSessionUID keeps session owners clear of system uids in dumps.
const firstSessionUID int32 = 10000

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// sessionRegistry tracks open application sessions and allocates their
// owner uids.
type sessionRegistry struct {
	mu      sync.Mutex
	nextUID int32
	open    map[*session]struct{}
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{nextUID: firstSessionUID, open: make(map[*session]struct{})}
}

func (r *sessionRegistry) register(s *session) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid := r.nextUID
	r.nextUID++
	r.open[s] = struct{}{}
	return uid
}

func (r *sessionRegistry) unregister(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, s)
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	open := make([]*session, 0, len(r.open))
	for s := range r.open {
		open = append(open, s)
	}
	r.mu.Unlock()
	for _, s := range open {
		s.conn.Close()
	}
}

// session is one connected application. The socket's lifetime is the
// owner's liveness: when the connection drops, the session context is
// canceled and the dispatch engine removes everything the owner added.
type session struct {
	uid  int32
	conn *websocket.Conn

	// Results arrive on the dispatcher goroutine while the read loop
	// owns the socket, so writes are serialized here.
	writeMu sync.Mutex
}

type sessionRequest struct {
	Op        string          `json:"op"`
	Policies  []policyPayload `json:"policies,omitempty"`
	PolicyIDs []int           `json:"policy_ids,omitempty"`
}

type sessionReply struct {
	Op       string   `json:"op"`
	UID      int32    `json:"uid,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// policyPayload is the JSON shape of one policy in an add request.
// Optional fields are pointers so that absent and zero are distinct.
type policyPayload struct {
	PolicyID     int            `json:"policy_id"`
	Direction    string         `json:"direction"`
	UserPriority *int           `json:"user_priority,omitempty"`
	IPVersion    *int           `json:"ip_version,omitempty"`
	DSCP         *int           `json:"dscp,omitempty"`
	Protocol     *int           `json:"protocol,omitempty"`
	SourcePort   *int           `json:"source_port,omitempty"`
	DestPort     *qos.PortRange `json:"dest_port,omitempty"`
	SourceAddr   string         `json:"source_addr,omitempty"`
	DestAddr     string         `json:"dest_addr,omitempty"`
}

func (p *policyPayload) toPolicy() (*qos.Policy, error) {
	var direction qos.Direction
	switch p.Direction {
	case "downlink":
		direction = qos.DirectionDownlink
	case "uplink":
		direction = qos.DirectionUplink
	default:
		return nil, errors.Errorf(errors.KindValidation, "unknown direction %q", p.Direction)
	}

	policy := qos.NewPolicy(p.PolicyID, direction)
	if p.UserPriority != nil {
		policy.UserPriority = *p.UserPriority
	}
	if p.IPVersion != nil {
		policy.IPVersion = *p.IPVersion
	}
	if p.DSCP != nil {
		policy.DSCP = *p.DSCP
	}
	if p.Protocol != nil {
		policy.Protocol = *p.Protocol
	}
	if p.SourcePort != nil {
		policy.SourcePort = *p.SourcePort
	}
	policy.DestPort = p.DestPort
	if p.SourceAddr != "" {
		addr, err := netip.ParseAddr(p.SourceAddr)
		if err != nil {
			return nil, errors.Errorf(errors.KindValidation, "bad source address %q", p.SourceAddr)
		}
		policy.SourceAddr = addr
	}
	if p.DestAddr != "" {
		addr, err := netip.ParseAddr(p.DestAddr)
		if err != nil {
			return nil, errors.Errorf(errors.KindValidation, "bad destination address %q", p.DestAddr)
		}
		policy.DestAddr = addr
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Session upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sess := &session{conn: conn}
	sess.uid = s.sessions.register(sess)
	defer s.sessions.unregister(sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.log.Info("Session opened", "uid", sess.uid, "remote", r.RemoteAddr)
	sess.write(sessionReply{Op: "hello", UID: sess.uid})

	for {
		var req sessionRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		s.dispatch(sess, ctx, &req)
	}

	// The deferred cancel reports the owner dead; the dispatch engine
	// synthesizes the remove-all.
	conn.Close()
	s.log.Info("Session closed", "uid", sess.uid)
}

func (s *Server) dispatch(sess *session, ctx context.Context, req *sessionRequest) {
	switch req.Op {
	case "add":
		s.dispatchAdd(sess, ctx, req)
	case "remove":
		if len(req.PolicyIDs) == 0 {
			sess.write(sessionReply{Op: "error", Error: "remove carries no policy ids"})
			return
		}
		s.handler.QueueRemoveRequest(req.PolicyIDs, sess.uid)
	case "remove_all":
		s.handler.QueueRemoveAllRequest(sess.uid)
	default:
		sess.write(sessionReply{Op: "error", Error: "unknown op " + req.Op})
	}
}

func (s *Server) dispatchAdd(sess *session, ctx context.Context, req *sessionRequest) {
	if len(req.Policies) == 0 {
		sess.write(sessionReply{Op: "error", Error: "add carries no policies"})
		return
	}
	policies := make([]*qos.Policy, len(req.Policies))
	for i := range req.Policies {
		policy, err := req.Policies[i].toPolicy()
		if err != nil {
			sess.write(sessionReply{Op: "error", Error: err.Error()})
			return
		}
		policies[i] = policy
	}

	s.handler.QueueAddRequest(policies, sess.uid, ctx, func(statuses []qos.RequestStatus) {
		names := make([]string, len(statuses))
		for i, status := range statuses {
			names[i] = status.String()
		}
		sess.write(sessionReply{Op: "result", Statuses: names})
	})
}

func (s *session) write(reply sessionReply) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.WriteJSON(reply)
}
