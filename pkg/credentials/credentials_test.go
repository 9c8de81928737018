package credentials_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolworks/weft/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var tmpDir string
	var m *credentials.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())

		m, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("loads empty credentials when no file exists", func() {
		creds, err := m.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.Vendors).To(BeEmpty())
	})

	It("round-trips a stored token", func() {
		Expect(m.SetToken("bot", "tok-1")).To(Succeed())

		token, err := m.GetToken("bot")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("tok-1"))
	})

	It("keeps the refresh token when the bearer token is replaced", func() {
		Expect(m.SetRefreshToken("agent", "refresh-1")).To(Succeed())
		Expect(m.SetToken("agent", "tok-2")).To(Succeed())

		refresh, err := m.GetRefreshToken("agent")
		Expect(err).NotTo(HaveOccurred())
		Expect(refresh).To(Equal("refresh-1"))
	})

	It("prefers the vendor environment variable over the file", func() {
		Expect(m.SetToken("bot", "from-file")).To(Succeed())
		Expect(os.Setenv("WEFT_BOT_TOKEN", "from-env")).To(Succeed())
		DeferCleanup(func() { os.Unsetenv("WEFT_BOT_TOKEN") })

		token, err := m.GetToken("bot")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("from-env"))
	})

	It("writes the credentials file with 0600 permissions", func() {
		Expect(m.SetToken("bot", "tok-1")).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, "credentials.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("removes a vendor and lists the rest sorted", func() {
		Expect(m.SetToken("bot", "t1")).To(Succeed())
		Expect(m.SetToken("agent", "t2")).To(Succeed())
		Expect(m.RemoveVendor("bot")).To(Succeed())

		vendors, err := m.ListVendors()
		Expect(err).NotTo(HaveOccurred())
		Expect(vendors).To(Equal([]string{"agent"}))
	})

	It("knows the supported vendors", func() {
		Expect(credentials.IsSupportedVendor("agent")).To(BeTrue())
		Expect(credentials.IsSupportedVendor("bot")).To(BeTrue())
		Expect(credentials.IsSupportedVendor("mainframe")).To(BeFalse())
		Expect(credentials.EnvVarForVendor("agent")).To(Equal("WEFT_AGENT_TOKEN"))
	})
})

var _ = Describe("Source", func() {
	var tmpDir string
	var m *credentials.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-source-test-*")
		Expect(err).NotTo(HaveOccurred())

		m, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("serves the stored token", func() {
		Expect(m.SetToken("agent", "tok-1")).To(Succeed())

		src, err := credentials.NewSource(m, "agent", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(src.Token()).To(Equal("tok-1"))
	})

	It("exchanges, serves, and persists a refreshed token", func() {
		Expect(m.SetToken("agent", "stale")).To(Succeed())
		Expect(m.SetRefreshToken("agent", "refresh-1")).To(Succeed())

		src, err := credentials.NewSource(m, "agent", func(_ context.Context, refreshToken string) (string, string, error) {
			Expect(refreshToken).To(Equal("refresh-1"))
			return "fresh", "refresh-2", nil
		})
		Expect(err).NotTo(HaveOccurred())

		token, err := src.Refresh(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("fresh"))
		Expect(src.Token()).To(Equal("fresh"))

		stored, err := m.GetToken("agent")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal("fresh"))

		storedRefresh, err := m.GetRefreshToken("agent")
		Expect(err).NotTo(HaveOccurred())
		Expect(storedRefresh).To(Equal("refresh-2"))
	})

	It("fails refresh when no exchange is configured", func() {
		src, err := credentials.NewSource(m, "bot", nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = src.Refresh(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("keeps the old token when the exchange fails", func() {
		Expect(m.SetToken("agent", "tok-1")).To(Succeed())

		src, err := credentials.NewSource(m, "agent", func(context.Context, string) (string, string, error) {
			return "", "", errors.New("exchange down")
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = src.Refresh(context.Background())
		Expect(err).To(MatchError(ContainSubstring("exchange down")))
		Expect(src.Token()).To(Equal("tok-1"))
	})
})
