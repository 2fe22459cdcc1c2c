package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/JohnPlummer/jp-go-tinder/resilience"
)

// serverErrorCheck rejects 5xx responses the way the HTTP client does.
func serverErrorCheck(resp fakeResponse) error {
	if resp.status >= 500 {
		return resilience.NewStatusCodeError(resp.status, fmt.Errorf("server error %d", resp.status))
	}
	return nil
}

var _ = Describe("Pipeline", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	})

	AfterEach(func() {
		cancel()
	})

	retryConfig := func(tries int) *resilience.RetryConfig {
		config := resilience.DefaultRetryConfig()
		config.MaxTries = tries
		config.Interval = 10 * time.Millisecond
		return config
	}

	breakerConfig := func() *resilience.CircuitBreakerConfig {
		config := resilience.DefaultCircuitBreakerConfig()
		config.MinRequests = 3
		config.Threshold = 80
		config.CircuitDuration = 100 * time.Millisecond
		return config
	}

	It("retries server errors and returns the final response", func() {
		client := &scriptedClient{responses: []fakeResponse{
			{status: 500}, {status: 500}, {status: 200, body: "ok"},
		}}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, serverErrorCheck, retryConfig(3), breakerConfig(), quietLogger())

		resp, err := pipeline.Execute(ctx, "GET /user/recs")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.body).To(Equal("ok"))
		Expect(client.getCallCount()).To(Equal(3))
		Expect(pipeline.RetryStats().TotalAttempts).To(Equal(int64(3)))
	})

	It("records server error responses as breaker successes", func() {
		client := &scriptedClient{responses: []fakeResponse{{status: 503}}}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, serverErrorCheck, retryConfig(5), breakerConfig(), quietLogger())

		_, err := pipeline.Execute(ctx, "GET /meta")
		var statusErr *resilience.StatusCodeError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode()).To(Equal(503))

		Expect(client.getCallCount()).To(Equal(5))
		Expect(pipeline.State()).To(Equal(resilience.StateClosed))
		Expect(pipeline.Counts().TotalFailures).To(Equal(uint32(0)))
		Expect(pipeline.Counts().TotalSuccesses).To(Equal(uint32(5)))
	})

	It("passes client error responses to the caller untouched", func() {
		client := &scriptedClient{responses: []fakeResponse{{status: 404, body: "missing"}}}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, serverErrorCheck, retryConfig(3), breakerConfig(), quietLogger())

		resp, err := pipeline.Execute(ctx, "GET /user/x")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.status).To(Equal(404))
		Expect(client.getCallCount()).To(Equal(1))
	})

	It("fails fast once the circuit opens, until the open duration elapses", func() {
		client := &scriptedClient{
			responses: []fakeResponse{{}, {}, {}, {status: 200, body: "recovered"}},
			errs: []error{
				errors.New("connection refused"),
				errors.New("connection refused"),
				errors.New("connection refused"),
			},
		}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, serverErrorCheck, retryConfig(1), breakerConfig(), quietLogger())

		for range 3 {
			_, err := pipeline.Execute(ctx, "POST /updates")
			Expect(err).To(HaveOccurred())
		}
		Expect(pipeline.State()).To(Equal(resilience.StateOpen))
		Expect(pipeline.Health().Healthy).To(BeFalse())

		_, err := pipeline.Execute(ctx, "POST /updates")
		Expect(err).To(MatchError(resilience.ErrCircuitOpen))
		Expect(client.getCallCount()).To(Equal(3))

		time.Sleep(150 * time.Millisecond)

		resp, err := pipeline.Execute(ctx, "POST /updates")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.body).To(Equal("recovered"))
		Expect(pipeline.State()).To(Equal(resilience.StateClosed))
	})

	It("does not spend retries on an open circuit", func() {
		client := &scriptedClient{
			responses: []fakeResponse{{}},
			errs:      []error{errors.New("connection refused")},
		}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, serverErrorCheck, retryConfig(3), breakerConfig(), quietLogger())

		// Three attempts trip the breaker; nothing reaches the client afterwards.
		_, err := pipeline.Execute(ctx, "GET /pass/1")
		Expect(err).To(HaveOccurred())
		Expect(client.getCallCount()).To(Equal(3))

		start := time.Now()
		_, err = pipeline.Execute(ctx, "GET /pass/1")
		Expect(err).To(MatchError(resilience.ErrCircuitOpen))
		Expect(time.Since(start)).To(BeNumerically("<", 10*time.Millisecond))
		Expect(client.getCallCount()).To(Equal(3))
	})

	It("falls back to defaults for nil configs", func() {
		client := &scriptedClient{responses: []fakeResponse{{status: 200}}}

		pipeline := resilience.NewPipeline[string, fakeResponse](client, nil, nil, nil, quietLogger())

		_, err := pipeline.Execute(ctx, "GET /meta")
		Expect(err).NotTo(HaveOccurred())
		Expect(pipeline.Health().Name).To(Equal("resilient-client"))
	})
})
