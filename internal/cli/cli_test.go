package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

var _ = Describe("Config", func() {
	It("starts from the client defaults", func() {
		cfg, err := loadConfig(newViper())
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Token).To(BeEmpty())
		Expect(cfg.Request.BaseURL).To(Equal(tinder.DefaultBaseURL))
		Expect(cfg.Retry.MaxTries).To(Equal(2))
		Expect(cfg.Retry.ThrowOriginal).To(BeTrue())
		Expect(cfg.Breaker.CircuitDuration).To(Equal(3 * time.Hour))
	})

	It("reads YAML over the defaults", func() {
		v := newViper()
		v.SetConfigType("yaml")
		Expect(v.ReadConfig(strings.NewReader(`
token: abc
retry:
  max_tries: 4
  interval: 250ms
  throw_original: false
breaker:
  circuit_duration: 30m
  threshold: 50
`))).To(Succeed())

		cfg, err := loadConfig(v)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Token).To(Equal("abc"))
		Expect(cfg.Retry.MaxTries).To(Equal(4))
		Expect(cfg.Retry.Interval).To(Equal(250 * time.Millisecond))
		Expect(cfg.Retry.Timeout).To(Equal(16 * time.Second))
		Expect(cfg.Retry.ThrowOriginal).To(BeFalse())
		Expect(cfg.Breaker.CircuitDuration).To(Equal(30 * time.Minute))
		Expect(cfg.Breaker.Threshold).To(Equal(50.0))
		Expect(cfg.Breaker.Timeout).To(Equal(12 * time.Second))
	})

	It("reads prefixed environment variables", func() {
		GinkgoT().Setenv("TINDERCTL_TOKEN", "from-env")
		GinkgoT().Setenv("TINDERCTL_RETRY_MAX_TRIES", "5")
		GinkgoT().Setenv("TINDERCTL_BREAKER_TIMEOUT", "3s")

		cfg, err := loadConfig(newViper())
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Token).To(Equal("from-env"))
		Expect(cfg.Retry.MaxTries).To(Equal(5))
		Expect(cfg.Breaker.Timeout).To(Equal(3 * time.Second))
	})

	It("builds client options", func() {
		cfg, err := loadConfig(newViper())
		Expect(err).NotTo(HaveOccurred())
		cfg.Token = "saved"
		cfg.Retry.MaxTries = 7

		client := tinder.New(cfg.ClientOptions()...)
		Expect(client.Token()).To(Equal("saved"))
		Expect(client.Config().Retry.MaxTries).To(Equal(7))
		Expect(client.Config().Request.Headers).To(HaveKeyWithValue("platform", "android"))
	})
})

var _ = Describe("Commands", func() {
	var (
		server     *httptest.Server
		out        *bytes.Buffer
		configPath string
		lastToken  atomic.Value
		lastSince  atomic.Value
	)

	run := func(args ...string) error {
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append(args, "--config", configPath, "--base-url", server.URL))
		return cmd.Execute()
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
		lastToken.Store("")
		lastSince.Store("")

		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"token":"fresh-token"}`)
		})
		mux.HandleFunc("GET /user/recs", func(w http.ResponseWriter, r *http.Request) {
			lastToken.Store(r.Header.Get(tinder.AuthTokenHeader))
			_, _ = io.WriteString(w, `{"status":200,"results":[{"_id":"u1"}]}`)
		})
		mux.HandleFunc("POST /updates", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				LastActivityDate string `json:"last_activity_date"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			lastSince.Store(body.LastActivityDate)
			_, _ = io.WriteString(w, `{"matches":[]}`)
		})
		server = httptest.NewServer(mux)

		configPath = filepath.Join(GinkgoT().TempDir(), "tinderctl.yaml")
		Expect(os.WriteFile(configPath, []byte("retry:\n  interval: 10ms\n"), 0o600)).To(Succeed())

		GinkgoT().Setenv("TINDERCTL_TOKEN", "")
	})

	AfterEach(func() {
		server.Close()
	})

	It("prints the session token after auth", func() {
		Expect(run("auth", "fb-token", "fb-id")).To(Succeed())
		Expect(out.String()).To(Equal("fresh-token\n"))
	})

	It("prints responses as indented JSON", func() {
		Expect(run("recs", "--token", "session")).To(Succeed())
		Expect(lastToken.Load()).To(Equal("session"))
		Expect(out.String()).To(Equal(`{
  "status": 200,
  "results": [
    {
      "_id": "u1"
    }
  ]
}
`))
	})

	It("fails without a token", func() {
		err := run("recs")
		Expect(err).To(MatchError(tinder.ErrNotAuthorized))
		Expect(out.String()).To(BeEmpty())
	})

	It("passes --since through to updates", func() {
		Expect(run("updates", "--token", "session", "--since", "2024-05-01")).To(Succeed())
		Expect(lastSince.Load()).To(Equal("2024-05-01"))
	})

	It("rejects a --since that poll cannot read", func() {
		err := run("poll", "--token", "session", "--since", "yesterday")
		Expect(err).To(MatchError(tinder.ErrInvalidArguments))
	})

	It("requires the photo flags for like", func() {
		err := run("like", "u1", "--token", "session")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("photo"))
	})

	It("prints the version", func() {
		Expect(run("version")).To(Succeed())
		Expect(out.String()).To(HavePrefix("tinderctl dev "))
	})
})
