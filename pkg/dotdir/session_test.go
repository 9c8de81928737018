package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolworks/weft/pkg/dotdir"
)

var _ = Describe("Session state", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no session exists", func() {
		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips a saved session", func() {
		saved := &dotdir.SessionState{Vendor: "agent", ConversationID: "conv-7"}
		Expect(m.SaveSession(saved, tmpDir)).To(Succeed())

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.Vendor).To(Equal("agent"))
		Expect(state.ConversationID).To(Equal("conv-7"))
		Expect(state.UpdatedAt).NotTo(BeZero())
	})

	It("writes the session file with restricted permissions", func() {
		Expect(m.SaveSession(&dotdir.SessionState{Vendor: "bot"}, tmpDir)).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, "session.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("rejects a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).To(HaveOccurred())
	})

	It("clears an existing session and tolerates clearing twice", func() {
		Expect(m.SaveSession(&dotdir.SessionState{Vendor: "bot", ConversationID: "conv-1"}, tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())

		Expect(m.ClearSession(tmpDir)).To(Succeed())
	})
})
