/*
   Copyright (c) 2020, btnmasher
   All rights reserved.

   Redistribution and use in source and binary forms, with or without modification, are permitted provided that
   the following conditions are met:

   1. Redistributions of source code must retain the above copyright notice, this list of conditions and the
      following disclaimer.

   2. Redistributions in binary form must reproduce the above copyright notice, this list of conditions and
      the following disclaimer in the documentation and/or other materials provided with the distribution.

   3. Neither the name of the copyright holder nor the names of its contributors may be used to endorse or
      promote products derived from this software without specific prior written permission.

   THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED
   WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A
   PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
   ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED
   TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
   HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
   NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
   POSSIBILITY OF SUCH DAMAGE.
*/

package ircd

import (
	"bufio"
	"crypto/tls"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/btnmasher/random"
)

// killSignal is what a KILL handler or internal error enqueues on
// conn.kill to tear a connection down (§4.D "quit channel").
type killSignal struct {
	killer string
	reason string
}

// Conn is the server side of one client connection: the socket, its
// buffered line reader/writer, the registration state machine's mutable
// fields, and the goroutine-pair lifecycle (§4.A, §4.D).
//
// The spec models this as a single cooperative task driven by a select
// over {outbound message, ping tick, pong timeout, killer message, DNS
// result, inbound line}. Go doesn't have cooperative single-threaded
// tasks; the idiomatic shape (and the one the teacher already used) is
// two goroutines instead: readLoop blocks on the socket and feeds the
// dispatcher directly, while writeLoop is the actual select loop over
// the outbound queue, the ping timer, the pong timer, and the kill
// channel. Fields that both loops touch are read and written under the
// embedded RWMutex.
type Conn struct {
	sync.RWMutex

	server    *Server
	sock      net.Conn
	secure    bool
	websocket bool

	remAddr string

	user *User

	caps              Capabilities
	capsNegotiating   bool
	saslState         *saslState
	saslAuthenticated bool
	saslAccount       string

	nickSet      bool
	userSet      bool
	pendingNick  string
	pendingUser  string
	pendingReal  string
	pendingPass  string

	registered bool

	incoming *bufio.Scanner
	outgoing *bufio.Writer

	writeQueue chan *Message

	pingTimer *time.Timer
	pongTimer *time.Timer

	lastPingToken string
	pongPending   bool

	kill chan killSignal

	timeoutForced bool
}

// NewConn constructs a Conn wrapping an accepted socket.
func NewConn(srv *Server, sock net.Conn, secure bool) *Conn {
	pingTimeout := DefaultPingTimeout
	if srv.Config != nil && srv.Config.PingTimeoutSeconds > 0 {
		pingTimeout = time.Duration(srv.Config.PingTimeoutSeconds) * time.Second
	}

	conn := &Conn{
		server:     srv,
		sock:       sock,
		secure:     secure,
		incoming:   bufio.NewScanner(sock),
		outgoing:   bufio.NewWriter(sock),
		writeQueue: make(chan *Message, WriteQueueLength),
		pingTimer:  time.NewTimer(pingTimeout),
		kill:       make(chan killSignal, 1),
	}
	conn.incoming.Buffer(make([]byte, MaxLineLength), MaxLineLength)
	return conn
}

func serve(conn *Conn) {
	defer conn.cleanup()
	conn.start()

	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Errorf("ircd: panic serving %v: %v\n%s", conn.remAddr, err, buf)
		}
		conn.sock.Close()
	}()

	if tlsConn, ok := conn.sock.(*tls.Conn); ok {
		conn.sock.SetDeadline(time.Now().Add(TLSHandshakeTimeout))
		if err := tlsConn.Handshake(); err != nil {
			log.Errorf("ircd: TLS handshake error from [%s]: %s", conn.remAddr, err)
			return
		}
		conn.secure = true
	}

	go conn.writeLoop()
	conn.readLoop()
}

func (conn *Conn) start() {
	conn.Lock()
	conn.remAddr = conn.sock.RemoteAddr().String()
	conn.Unlock()

	conn.server.State.IncomingConn(hostOnly(conn.remAddr))
	log.Debugf("ircd: accepted connection from [%s]", conn.remAddr)
}

func (conn *Conn) readLoop() {
	for {
		conn.setReadDeadline()

		if !conn.incoming.Scan() {
			if err := conn.incoming.Err(); err != nil {
				if neterr, ok := err.(net.Error); ok && neterr.Timeout() {
					if !conn.timeoutForced {
						conn.Quit("Ping timeout.")
						return
					}
				}
			}
			select {
			case conn.kill <- killSignal{reason: "Connection closed."}:
			default:
			}
			return
		}

		data := conn.incoming.Text()
		msg, err := Parse(data)
		if err != nil {
			log.Debugf("ircd: parse error from [%s]: %s", conn.remAddr, err)
			continue
		}
		if msg == nil {
			continue // blank line, silently ignored
		}

		Dispatch(conn, msg)
		RecycleMessage(msg)
	}
}

func (conn *Conn) writeLoop() {
	for {
		select {
		case sig := <-conn.kill:
			conn.handleKill(sig)
			return

		case msg := <-conn.writeQueue:
			conn.writeNow(msg)

		case <-conn.pingTimer.C:
			conn.sendPing()

		case <-conn.pongTimerChan():
			conn.Quit("Ping timeout.")
		}
	}
}

// pongTimerChan returns the pong timer's channel, or a nil channel (which
// blocks forever in a select) when no pong is outstanding.
func (conn *Conn) pongTimerChan() <-chan time.Time {
	conn.RLock()
	defer conn.RUnlock()
	if conn.pongTimer == nil {
		return nil
	}
	return conn.pongTimer.C
}

func (conn *Conn) handleKill(sig killSignal) {
	reason := sig.reason
	if reason == "" {
		reason = "Client quit."
	}
	errMsg := NewPooledMessage()
	errMsg.Command = "ERROR"
	errMsg.WithTrailing("Closing Link: " + reason)
	conn.writeNow(errMsg)
	RecycleMessage(errMsg)
	conn.forceTimeout()
}

// Write enqueues msg for the write loop. Safe to call from any goroutine,
// including other connections' handlers (broadcast fan-out).
func (conn *Conn) Write(msg *Message) {
	select {
	case conn.writeQueue <- msg:
	default:
		log.Warnf("ircd: write queue full for [%s], dropping message", conn.remAddr)
	}
}

func (conn *Conn) writeNow(msg *Message) {
	conn.setWriteDeadline()

	if _, err := conn.outgoing.WriteString(msg.Render()); err != nil {
		log.Debugf("ircd: write error for [%s]: %s", conn.remAddr, err)
		conn.forceTimeout()
		return
	}
	if err := conn.outgoing.Flush(); err != nil {
		log.Debugf("ircd: flush error for [%s]: %s", conn.remAddr, err)
		conn.forceTimeout()
	}
}

func (conn *Conn) sendPing() {
	conn.Lock()
	conn.lastPingToken = random.String(10)
	conn.pongPending = true
	pongTimeout := DefaultPongTimeout
	if conn.server.Config != nil && conn.server.Config.PongTimeoutSeconds > 0 {
		pongTimeout = time.Duration(conn.server.Config.PongTimeoutSeconds) * time.Second
	}
	conn.pongTimer = time.NewTimer(pongTimeout)
	token := conn.lastPingToken
	conn.Unlock()

	m := NewPooledMessage()
	m.Command = CmdPing
	m.WithTrailing(token)
	conn.writeNow(m)
	RecycleMessage(m)
}

// ReceivedPong cancels the outstanding pong timer if token matches the
// last PING sent, and reschedules the ping waker.
func (conn *Conn) ReceivedPong(token string) {
	conn.Lock()
	defer conn.Unlock()

	if conn.pongPending && token == conn.lastPingToken {
		conn.pongPending = false
		if conn.pongTimer != nil {
			conn.pongTimer.Stop()
			conn.pongTimer = nil
		}
	}

	pingTimeout := DefaultPingTimeout
	if conn.server.Config != nil && conn.server.Config.PingTimeoutSeconds > 0 {
		pingTimeout = time.Duration(conn.server.Config.PingTimeoutSeconds) * time.Second
	}
	conn.pingTimer.Reset(pingTimeout)
}

// Quit tears the connection down gracefully: broadcasts QUIT to every
// channel the user shared, removes the user from global state, and
// signals the loops to stop.
func (conn *Conn) Quit(reason string) {
	conn.RLock()
	user := conn.user
	conn.RUnlock()

	if user != nil {
		quitMsg := NewPooledMessage()
		quitMsg.Source = user.Source()
		quitMsg.Command = CmdQuit
		quitMsg.WithTrailing(reason)

		seen := make(map[string]bool)
		for _, chanName := range user.Channels() {
			if seen[chanName] {
				continue
			}
			seen[chanName] = true
			if channel, ok := conn.server.State.LookupChannel(chanName); ok {
				channel.Send(quitMsg, CanonicalName(user.Nick()))
			}
		}
		// Not recycled: Channel.Send fans quitMsg out to several
		// connections' write queues, so no single writeLoop owns it.

		conn.server.State.RemoveUser(user, time.Now().Unix())
	}

	select {
	case conn.kill <- killSignal{reason: reason}:
	default:
	}
}

// Kill is invoked by another connection's KILL handler.
func (conn *Conn) Kill(killer, reason string) {
	errMsg := NewPooledMessage()
	errMsg.Command = "ERROR"
	errMsg.WithTrailing("Closing Link: Killed by " + killer + " (" + reason + ")")
	conn.writeNow(errMsg)
	RecycleMessage(errMsg)

	conn.Quit(reason)
}

func (conn *Conn) cleanup() {
	conn.RLock()
	user := conn.user
	conn.RUnlock()

	if user != nil && conn.registered {
		if _, ok := conn.server.State.LookupUser(user.Nick()); ok {
			conn.server.State.RemoveUser(user, time.Now().Unix())
		}
	}

	conn.server.State.ClosedConn(hostOnly(conn.remAddr))
	conn.pingTimer.Stop()
}

func (conn *Conn) setWriteDeadline() {
	if WriteTimeout != 0 {
		conn.sock.SetWriteDeadline(time.Now().Add(WriteTimeout))
	}
}

func (conn *Conn) setReadDeadline() {
	if KeepAliveTimeout != 0 {
		conn.sock.SetReadDeadline(time.Now().Add(KeepAliveTimeout))
	}
}

func (conn *Conn) forceTimeout() {
	conn.Lock()
	defer conn.Unlock()
	conn.timeoutForced = true
	conn.sock.SetReadDeadline(time.Now().Add(time.Microsecond))
}

// newReplyMessage builds a numeric reply addressed from the server.
func (conn *Conn) newReplyMessage(code uint16) *Message {
	msg := NewPooledMessage()
	msg.Source = conn.server.Hostname()
	msg.Code = code
	return msg
}

// hostOnly strips the port from a net.Addr-rendered "host:port" string.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
