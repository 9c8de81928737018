package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolworks/weft/pkg/transport"
)

// fakeTokens counts refreshes and swaps the token in place.
type fakeTokens struct {
	token      string
	next       string
	refreshes  atomic.Int32
	refreshErr error
}

func (f *fakeTokens) Token() string { return f.token }

func (f *fakeTokens) Refresh(context.Context) (string, error) {
	f.refreshes.Add(1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.token = f.next
	return f.token, nil
}

var _ = Describe("Client", func() {
	Describe("DoJSON", func() {
		It("round-trips JSON with the bearer token attached", func() {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.Write([]byte(`{"id":"conv-1"}`))
			}))
			defer srv.Close()

			c := transport.New(&fakeTokens{token: "tok-a"})
			var out struct {
				ID string `json:"id"`
			}
			err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]any{"title": "t"}, &out)

			Expect(err).NotTo(HaveOccurred())
			Expect(out.ID).To(Equal("conv-1"))
			Expect(gotAuth).To(Equal("Bearer tok-a"))
		})

		It("surfaces non-2xx responses as StatusError", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			}))
			defer srv.Close()

			c := transport.New(nil)
			err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

			var statusErr *transport.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Status).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("auth retry", func() {
		It("refreshes once and replays once on a 401, then succeeds", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.Header.Get("Authorization") != "Bearer tok-fresh" {
					http.Error(w, "expired", http.StatusUnauthorized)
					return
				}
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "tok-stale", next: "tok-fresh"}
			c := transport.New(tokens)

			err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.refreshes.Load()).To(Equal(int32(1)))
			Expect(calls.Load()).To(Equal(int32(2)))
		})

		It("refreshes once and retries once when the failure persists", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "expired", http.StatusUnauthorized)
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "tok", next: "tok2"}
			c := transport.New(tokens)

			err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

			var statusErr *transport.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Status).To(Equal(http.StatusUnauthorized))
			Expect(tokens.refreshes.Load()).To(Equal(int32(1)), "exactly one refresh")
			Expect(calls.Load()).To(Equal(int32(2)), "exactly one retry")
		})

		It("propagates the original error when the refresh itself fails", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "expired", http.StatusUnauthorized)
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "tok", refreshErr: errors.New("refresh endpoint down")}
			c := transport.New(tokens)

			err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

			var statusErr *transport.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(calls.Load()).To(Equal(int32(1)), "no retry after failed refresh")
		})

		It("does not refresh for non-auth failures", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "oops", http.StatusInternalServerError)
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "tok"}
			c := transport.New(tokens)

			err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

			Expect(err).To(HaveOccurred())
			Expect(tokens.refreshes.Load()).To(BeZero())
		})

		It("honors a vendor-specific classifier", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") == "Bearer ok" {
					w.Write([]byte(`{}`))
					return
				}
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"code":"token_expired"}`))
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "stale", next: "ok"}
			c := transport.New(tokens, transport.WithShouldRefresh(func(status int, body []byte) bool {
				return status == http.StatusForbidden
			}))

			Expect(c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)).To(Succeed())
			Expect(tokens.refreshes.Load()).To(Equal(int32(1)))
		})
	})

	Describe("OpenStream", func() {
		It("returns the raw response body for streaming consumption", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				w.Write([]byte("data: one\ndata: two\n"))
			}))
			defer srv.Close()

			c := transport.New(nil)
			stream, err := c.OpenStream(context.Background(), http.MethodPost, srv.URL, map[string]any{"q": "hi"})
			Expect(err).NotTo(HaveOccurred())
			defer stream.Close()

			raw, err := io.ReadAll(stream)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("data: one\ndata: two\n"))
		})

		It("applies the retry-once contract before the stream opens", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					http.Error(w, "expired", http.StatusUnauthorized)
					return
				}
				w.Write([]byte("data: hi\n"))
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "a", next: "b"}
			c := transport.New(tokens)

			stream, err := c.OpenStream(context.Background(), http.MethodPost, srv.URL, nil)
			Expect(err).NotTo(HaveOccurred())
			stream.Close()
			Expect(tokens.refreshes.Load()).To(Equal(int32(1)))
		})
	})
})
