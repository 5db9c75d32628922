// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package transport

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"grimm.is/airqos/internal/errors"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/qos"
)

// MinProtocolVersion is the lowest control-protocol version that
// supports per-flow QoS policies. Older daemons are rejected at
// construction; there is no runtime downgrade path.
const MinProtocolVersion = 2

const (
	commandTimeout = 3 * time.Second
	maxDatagram    = 4096
)

// Supplicant is a qos.Transport backed by a wpa_supplicant-style unix
// datagram control socket. One socket carries synchronous commands; a
// second, attached socket receives unsolicited confirmation events.
type Supplicant struct {
	log      *logging.Logger
	cmd      *net.UnixConn
	monitor  *net.UnixConn
	remote   *net.UnixAddr
	localDir string

	maxPolicies int
	protocol    int

	mu      sync.Mutex
	handler qos.ConfirmationHandler

	done      chan struct{}
	closeOnce sync.Once
}

// DialSupplicant connects to the control socket, verifies the protocol
// version, reads the transaction capacity, and attaches for events.
func DialSupplicant(log *logging.Logger, socketPath string) (*Supplicant, error) {
	s := &Supplicant{
		log:    log.WithComponent("supplicant"),
		remote: &net.UnixAddr{Name: socketPath, Net: "unixgram"},
		done:   make(chan struct{}),
	}

	localDir, err := os.MkdirTemp("", "airqos-ctrl-")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "creating control socket directory")
	}
	s.localDir = localDir

	s.cmd, err = s.bind("cmd")
	if err != nil {
		s.Close()
		return nil, err
	}
	s.monitor, err = s.bind("monitor")
	if err != nil {
		s.Close()
		return nil, err
	}

	if err := s.handshake(); err != nil {
		s.Close()
		return nil, err
	}
	go s.readEvents()

	s.log.Info("Connected to control socket",
		"path", socketPath, "protocol", s.protocol, "max_policies", s.maxPolicies)
	return s, nil
}

func (s *Supplicant) bind(name string) (*net.UnixConn, error) {
	local := &net.UnixAddr{Name: filepath.Join(s.localDir, name), Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", local)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "binding control socket")
	}
	return conn, nil
}

func (s *Supplicant) handshake() error {
	reply, err := s.command("PING")
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return errors.Errorf(errors.KindTransport, "unexpected PING reply %q", reply)
	}

	reply, err = s.command("GET_CAPABILITY qos")
	if err != nil {
		return err
	}
	if err := s.parseCapability(reply); err != nil {
		return err
	}
	if s.protocol < MinProtocolVersion {
		return errors.Errorf(errors.KindUnavailable,
			"control protocol v%d does not support QoS policies (need v%d)",
			s.protocol, MinProtocolVersion)
	}

	reply, err = s.request(s.monitor, "ATTACH")
	if err != nil {
		return err
	}
	if reply != "OK" {
		return errors.Errorf(errors.KindTransport, "ATTACH rejected: %s", reply)
	}
	return nil
}

func (s *Supplicant) parseCapability(reply string) error {
	for _, field := range strings.Fields(reply) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Errorf(errors.KindTransport, "bad capability field %q", field)
		}
		switch key {
		case "protocol":
			s.protocol = n
		case "max_policies":
			s.maxPolicies = n
		}
	}
	if s.maxPolicies <= 0 {
		return errors.New(errors.KindTransport, "capability reply carries no transaction capacity")
	}
	return nil
}

// command runs one synchronous request on the command socket.
func (s *Supplicant) command(request string) (string, error) {
	return s.request(s.cmd, request)
}

func (s *Supplicant) request(conn *net.UnixConn, request string) (string, error) {
	if _, err := conn.WriteToUnix([]byte(request), s.remote); err != nil {
		return "", errors.Wrapf(err, errors.KindTransport, "sending %s", firstWord(request))
	}
	if err := conn.SetReadDeadline(time.Now().Add(commandTimeout)); err != nil {
		return "", errors.Wrap(err, errors.KindTransport, "arming read deadline")
	}
	buf := make([]byte, maxDatagram)
	n, _, err := conn.ReadFromUnix(buf)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindTimeout, "waiting for %s reply", firstWord(request))
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

func (s *Supplicant) readEvents() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := s.monitor.ReadFromUnix(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Error("Monitor socket read failed", "error", err)
			return
		}
		line := strings.TrimSpace(string(buf[:n]))
		link, ids, ok := parseEvent(line)
		if !ok {
			s.log.Debug("Ignoring monitor event", "event", line)
			continue
		}
		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler == nil {
			continue
		}
		results := make([]qos.PolicyStatus, len(ids))
		for i, id := range ids {
			results[i] = qos.PolicyStatus{WireID: id, Status: qos.SubmitSent}
		}
		handler(link, results)
	}
}

// MaxPoliciesPerRequest returns the capacity advertised at handshake.
func (s *Supplicant) MaxPoliciesPerRequest() int { return s.maxPolicies }

// SetConfirmationHandler registers the unsolicited-event callback.
func (s *Supplicant) SetConfirmationHandler(fn qos.ConfirmationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

// AddPolicies submits an add transaction for one link. The returned
// statuses are in submission order.
func (s *Supplicant) AddPolicies(link string, policies []*qos.Policy) ([]qos.PolicyStatus, error) {
	parts := make([]string, 0, len(policies)+2)
	parts = append(parts, "QOS_POLICY_ADD", link)
	wireIDs := make([]qos.WireID, len(policies))
	for i, p := range policies {
		parts = append(parts, encodePolicy(p))
		wireIDs[i] = p.WireID()
	}
	reply, err := s.command(strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}
	return parseStatusReply(reply, wireIDs)
}

// RemovePolicies submits a remove transaction for one link.
func (s *Supplicant) RemovePolicies(link string, ids []qos.WireID) ([]qos.PolicyStatus, error) {
	reply, err := s.command(fmt.Sprintf("QOS_POLICY_REMOVE %s %s", link, encodeWireIDs(ids)))
	if err != nil {
		return nil, err
	}
	return parseStatusReply(reply, ids)
}

// Close shuts both sockets down and removes the local socket files.
func (s *Supplicant) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.cmd != nil {
			s.cmd.Close()
		}
		if s.monitor != nil {
			s.monitor.Close()
		}
		if s.localDir != "" {
			os.RemoveAll(s.localDir)
		}
	})
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
