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
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// msgpool is the package-level Message object pool, warmed up by Warmup.
var msgpool = msgPool

var log *logrus.Logger

// Server holds the state of an IRC server instance: configuration,
// the shared registry, and the live listeners.
type Server struct {
	sync.RWMutex

	listenAddr string
	hostname   string
	network    string
	motd       []string
	welcome    string

	Config *Config
	State  *GlobalState
	Store  PersistenceStore

	TLSConfig *tls.Config

	listener net.Listener
}

// Warmup initializes the ircd library for use: wires the logger, builds
// the command router, and pre-allocates the message pool.
func Warmup(logger *logrus.Logger) {
	log = logger
	defaultRouter = buildRouter(logger)
	log.Info("ircd: warming up message pool")
	msgpool.Warmup(MessagePoolMax)
}

// NewServer constructs a Server from loaded configuration.
func NewServer(cfg *Config, store PersistenceStore) *Server {
	now := time.Now().Unix()
	server := &Server{
		listenAddr: cfg.ListenAddress,
		hostname:   cfg.Hostname,
		network:    cfg.Network,
		welcome:    cfg.Welcome,
		motd:       cfg.MOTDLines,
		Config:     cfg,
		State:      NewGlobalState(now, DefaultNickHistoryDepth),
		Store:      store,
	}
	return server
}

func (server *Server) Network() string {
	server.RLock()
	defer server.RUnlock()
	if server.network == "" {
		return server.hostname
	}
	return server.network
}

func (server *Server) Address() string {
	server.RLock()
	defer server.RUnlock()
	if server.listenAddr == "" && server.listener != nil {
		return server.listener.Addr().String()
	}
	return server.listenAddr
}

func (server *Server) SetAddress(addr string) {
	server.Lock()
	defer server.Unlock()
	server.listenAddr = addr
}

func (server *Server) Hostname() string {
	server.RLock()
	defer server.RUnlock()
	if server.hostname == "" && server.listener != nil {
		return server.listener.Addr().String()
	}
	return server.hostname
}

func (server *Server) SetHostname(host string) {
	server.Lock()
	defer server.Unlock()
	server.hostname = host
}

// MOTD returns the configured message-of-the-day lines.
func (server *Server) MOTD() []string {
	server.RLock()
	defer server.RUnlock()
	if len(server.motd) == 0 {
		return []string{"Server has no MOTD message set."}
	}
	return server.motd
}

// SetMOTD replaces the message-of-the-day lines.
func (server *Server) SetMOTD(lines []string) {
	server.Lock()
	defer server.Unlock()
	server.motd = lines
}

func (server *Server) Welcome() string {
	server.RLock()
	defer server.RUnlock()
	if server.welcome == "" {
		return "Server has no welcome message set."
	}
	return server.welcome
}

func (server *Server) SetWelcome(msg string) {
	server.Lock()
	defer server.Unlock()
	server.welcome = msg
}

// ISupport renders the advertised ISUPPORT tokens (§4.K, exact values
// pinned in settings.go so they stay in lock-step with the limits they
// describe).
func (server *Server) ISupport() []string {
	return []string{
		fmt.Sprintf("AWAYLEN=%d", MaxAwayLength),
		"CASEMAPPING=ascii",
		"CHANMODES=IabehiklmnopqstvB",
		fmt.Sprintf("CHANNELLEN=%d", MaxChanLength),
		fmt.Sprintf("CHANTYPES=%s", ChannelPrefixes),
		fmt.Sprintf("CHANLIMIT=%s:%d", ChannelPrefixes, MaxJoinedChans),
		"EXCEPTS=e",
		"FNC",
		fmt.Sprintf("HOSTLEN=%d", MaxHostLength),
		"INVEX=I",
		fmt.Sprintf("KEYLEN=%d", MaxKeyLength),
		fmt.Sprintf("KICKLEN=%d", MaxKickLength),
		fmt.Sprintf("LINELEN=%d", MaxLineLength),
		fmt.Sprintf("MAXLIST=beI:%d", MaxListItems),
		fmt.Sprintf("MAXCHANNELS=%d", MaxJoinedChans),
		fmt.Sprintf("MAXNICKLEN=%d", MaxNickLength),
		fmt.Sprintf("MAXPARA=%d", MaxMsgParams),
		fmt.Sprintf("MAXTARGETS=%d", MaxTargets),
		fmt.Sprintf("MODES=%d", MaxModeChange),
		fmt.Sprintf("NETWORK=%s", server.Network()),
		fmt.Sprintf("NICKLEN=%d", MaxNickLength),
		"PREFIX=(qaohv)~&@%+",
		"SAFELIST",
		"STATUSMSG=~&@%+",
		fmt.Sprintf("TOPICLEN=%d", MaxTopicLength),
		fmt.Sprintf("USERLEN=%d", MaxUserLength),
		"USERMODES=OiorwWz",
	}
}

// ListenAndServe listens on the configured plaintext address.
func (server *Server) ListenAndServe() error {
	addr := server.Address()
	if addr == "" {
		addr = ":6667"
	}

	listen, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}

	server.Lock()
	server.listener = listen
	server.Unlock()

	return server.Serve(tcpKeepAliveListener{listen.(*net.TCPListener)}, false)
}

// Shutdown closes the plaintext listener, ending ListenAndServe's accept
// loop without tearing down already-established connections; those drain
// on their own via client QUIT or the idle ping/pong timeout (§4.D).
func (server *Server) Shutdown() error {
	server.Lock()
	defer server.Unlock()
	if server.listener != nil {
		return server.listener.Close()
	}
	return nil
}

// ListenAndServeTLS listens on the configured TLS address.
func (server *Server) ListenAndServeTLS(certFile, keyFile string) error {
	addr := ""
	if server.Config != nil {
		addr = server.Config.TLSAddress
	}
	if addr == "" {
		addr = ":6697"
	}

	config := cloneTLSConfig(server.TLSConfig)

	configHasCert := len(config.Certificates) > 0 || config.GetCertificate != nil
	if !configHasCert || certFile != "" || keyFile != "" {
		var err error
		config.Certificates = make([]tls.Certificate, 1)
		config.Certificates[0], err = tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return err
		}
	}

	listen, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}

	tlsListener := tls.NewListener(tcpKeepAliveListener{listen.(*net.TCPListener)}, config)
	return server.Serve(tlsListener, true)
}

// Serve accepts connections from listen and spawns a connection
// goroutine for each one.
func (server *Server) Serve(listen net.Listener, secure bool) error {
	defer listen.Close()

	log.Infof("ircd: starting listener at local address [%s]", listen.Addr())

	var tempDelay time.Duration

	for {
		sock, err := listen.Accept()
		if err != nil {
			if neterr, ok := err.(net.Error); ok && neterr.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				log.Errorf("ircd: error accepting connection: %v; retrying in %vms", err, tempDelay.Milliseconds())
				time.Sleep(tempDelay)
				continue
			}
			return err
		}

		tempDelay = 0
		connectionsAcceptedTotal.Inc()
		conn := NewConn(server, sock, secure)
		go serve(conn)
	}
}

// cloneTLSConfig returns a shallow clone of cfg's exported fields.
func cloneTLSConfig(cfg *tls.Config) *tls.Config {
	if cfg == nil {
		return &tls.Config{}
	}
	clone := cfg.Clone()
	if clone == nil {
		return &tls.Config{}
	}
	return clone
}

// tcpKeepAliveListener enables TCP keep-alives on every accepted socket.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (listen tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := listen.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(KeepAliveTimeout)
	return conn, nil
}
