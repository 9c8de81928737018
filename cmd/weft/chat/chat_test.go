package chatcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/spoolworks/weft/cmd/weft/chat"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with expected properties", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
		Expect(cmd.Short).NotTo(BeEmpty())
	})

	It("registers the vendor selection flags", func() {
		cmd := chatcmder.NewChatCmd()
		for _, name := range []string{"vendor", "base-url", "bot-id", "app-id", "user-id", "render"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), "missing flag %q", name)
		}
	})

	It("defaults the vendor flag from the default config", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("vendor")
		Expect(flag.DefValue).To(Equal("agent"))
	})

	It("defaults markdown rendering to on", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("render")
		Expect(flag.DefValue).To(Equal("true"))
	})
})
