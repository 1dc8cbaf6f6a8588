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
	"fmt"
	"path"
	"reflect"
	"runtime"

	"github.com/sirupsen/logrus"
)

// MessageContext carries one dispatch's mutable state through its
// handler chain, gin-router style: a handler can mark itself Handled to
// short-circuit later handlers in the same chain, or AbortWithError to
// stop and have the error logged.
type MessageContext struct {
	Conn *Conn
	Msg  *Message

	handler string
	handled bool
	abort   bool
	err     error
}

func (c *MessageContext) Handled() { c.handled = true }

func (c *MessageContext) AbortWithError(err error) {
	c.abort = true
	c.err = err
}

// MessageHandler processes one IRC command within a MessageContext.
type MessageHandler func(*MessageContext)

// HandlersChain is an ordered list of handlers registered for one command.
type HandlersChain []MessageHandler

// Router maps command verbs to handler chains.
type Router struct {
	logger     *logrus.Entry
	RouterGroup
	HandlerMap map[string]HandlersChain
}

// NewRouter constructs an empty Router.
func NewRouter(logger *logrus.Entry) *Router {
	if logger == nil {
		panic("must provide a logger to NewRouter")
	}
	r := &Router{
		logger:     logger.WithField("component", "router"),
		HandlerMap: make(map[string]HandlersChain),
	}
	r.root = true
	r.router = r
	return r
}

func (router *Router) addHandler(command string, handlers HandlersChain) {
	if command == "" {
		panic("command must not be an empty string")
	}
	if len(handlers) == 0 {
		panic("there must be at least one handler")
	}
	if _, exists := router.HandlerMap[command]; exists {
		panic(fmt.Sprintf("handler(s) already registered for command: %s", command))
	}
	router.HandlerMap[command] = handlers
}

// Use attaches middleware included in every command's handler chain.
func (router *Router) Use(middleware ...MessageHandler) *Router {
	router.RouterGroup.Use(middleware...)
	return router
}

// Handle registers a handler chain for command. The last handler should
// be the real handler; earlier ones are shared middleware.
func (router *Router) Handle(command string, handlers ...MessageHandler) *Router {
	handlers = router.combineHandlers(handlers)
	router.router.addHandler(command, handlers)
	return router
}

// RouterGroup shares a middleware prefix across several Handle calls.
type RouterGroup struct {
	root     bool
	router   *Router
	Handlers HandlersChain
}

func (group *RouterGroup) combineHandlers(handlers HandlersChain) HandlersChain {
	merged := make(HandlersChain, 0, len(group.Handlers)+len(handlers))
	merged = append(merged, group.Handlers...)
	merged = append(merged, handlers...)
	return merged
}

func (group *RouterGroup) Handle(command string, handlers ...MessageHandler) *Router {
	handlers = group.combineHandlers(handlers)
	group.router.addHandler(command, handlers)
	return group.router
}

func (group *RouterGroup) Use(middleware ...MessageHandler) *RouterGroup {
	group.Handlers = append(group.Handlers, middleware...)
	return group
}

// Group creates a sub-group sharing this group's middleware plus its own.
func (group *RouterGroup) Group(handlers ...MessageHandler) *RouterGroup {
	return &RouterGroup{
		Handlers: group.combineHandlers(handlers),
		router:   group.router,
	}
}

func nameOfFunction(f any) string {
	return path.Base(runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name())
}

// Route runs msg through its registered handler chain. Unknown commands
// get ReplyUnknownCommand (421).
func (router *Router) Route(conn *Conn, msg *Message) {
	handlers, exists := router.HandlerMap[msg.Command]
	if !exists {
		conn.ReplyNumeric(ReplyUnknownCommand, msg.Command, "Unknown command")
		return
	}

	entry := router.logger.WithField("command", msg.Command)
	ctx := &MessageContext{Conn: conn, Msg: msg}

	for i := range handlers {
		ctx.handler = nameOfFunction(handlers[i])
		handlers[i](ctx)

		if ctx.err != nil {
			entry.Debugf("handler %s reported error: %s", ctx.handler, ctx.err)
		}
		if ctx.handled || (ctx.abort && len(handlers) > 1) {
			return
		}
	}
}

// defaultRouter is the package-level dispatcher, built once in Warmup.
var defaultRouter *Router

func buildRouter(logger *logrus.Logger) *Router {
	r := NewRouter(logger.WithField("component", "router"))
	registerRegistrationHandlers(r)
	registerChannelHandlers(r)
	registerMessagingHandlers(r)
	registerQueryHandlers(r)
	registerServiceHandlers(r)
	return r
}

// Dispatch is the single entry point called once per parsed inbound
// line (§4.G): it counts the command, enforces the pre-auth allowlist,
// and routes to the registered handler chain.
func Dispatch(conn *Conn, msg *Message) {
	countCommand(msg.Command)

	conn.RLock()
	registered := conn.registered
	conn.RUnlock()

	if !registered && !preAuthCommands[msg.Command] {
		conn.ReplyNumeric(ReplyNotRegistered, "You have not registered")
		return
	}

	defaultRouter.Route(conn, msg)
}

// HandlerNames returns every registered command and its handler chain's
// function names.
func HandlerNames() map[string][]string {
	out := make(map[string][]string, len(defaultRouter.HandlerMap))
	for cmd, chain := range defaultRouter.HandlerMap {
		names := make([]string, len(chain))
		for i := range chain {
			names[i] = nameOfFunction(chain[i])
		}
		out[cmd] = names
	}
	return out
}
