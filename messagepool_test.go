/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd_test

import (
	"testing"

	. "github.com/go-ircd/ircd"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMessagePoolSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MessagePool Suite")
}

var _ = Describe("Message pool", func() {
	Describe("fetching a message", func() {
		It("returns a scrubbed message ready for reuse", func() {
			msg := NewPooledMessage()
			Expect(msg).ShouldNot(BeNil())
			Expect(msg.Source).Should(Equal(""))
			Expect(msg.Command).Should(Equal(""))
			Expect(msg.Code).Should(Equal(uint16(0)))
			Expect(msg.Params).Should(HaveLen(0))
			Expect(msg.TrailingSet).Should(BeFalse())
		})
	})

	Describe("recycling a message", func() {
		It("scrubs every field before it's reused", func() {
			msg := NewPooledMessage()
			msg.Source = "irc.someserver.org"
			msg.Code = ReplyWelcome
			msg.Command = CmdPrivMsg
			msg.Params = append(msg.Params, "somenick")
			msg.WithTrailing("I am the server.")

			RecycleMessage(msg)

			next := NewPooledMessage()
			Expect(next.Source).Should(Equal(""))
			Expect(next.Code).Should(Equal(uint16(0)))
			Expect(next.Command).Should(Equal(""))
			Expect(next.Params).Should(HaveLen(0))
			Expect(next.Trailing).Should(Equal(""))
			Expect(next.TrailingSet).Should(BeFalse())
		})
	})
})
