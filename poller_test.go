package tinder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

var _ = Describe("PollUpdates", func() {
	var (
		api    *fakeAPI
		client *tinder.Client
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		api = newFakeAPI()
		client = newTestClient(api, tinder.WithToken("session"))
	})

	AfterEach(func() {
		cancel()
		api.Close()
	})

	It("advances the date to the last activity of each batch", func() {
		api.on(http.MethodPost, "/updates", always(200, `{"matches":[],"last_activity_date":"2024-05-01T10:00:00.000Z"}`))

		var batches int
		err := client.PollUpdates(ctx, 10*time.Millisecond, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			batches++
			if batches == 3 {
				cancel()
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(batches).To(Equal(3))

		requests := api.recorded()
		Expect(requests).To(HaveLen(3))
		Expect(requests[0].bodyField("last_activity_date")).To(Equal(""))
		Expect(requests[1].bodyField("last_activity_date")).To(Equal("2024-05-01T10:00:00.000Z"))
		Expect(requests[2].bodyField("last_activity_date")).To(Equal("2024-05-01T10:00:00.000Z"))
	})

	It("falls back to the poll time when the batch has no activity date", func() {
		api.on(http.MethodPost, "/updates", always(200, `{"matches":[]}`))
		start := time.Now().Add(-time.Second)

		var batches int
		err := client.PollUpdates(ctx, 10*time.Millisecond, start.Add(-time.Hour), func(ctx context.Context, updates json.RawMessage) error {
			batches++
			if batches == 2 {
				cancel()
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())

		second, parseErr := time.Parse(time.RFC3339Nano, api.recorded()[1].bodyField("last_activity_date"))
		Expect(parseErr).NotTo(HaveOccurred())
		Expect(second).To(BeTemporally(">", start))
	})

	It("keeps polling through request failures", func() {
		api.on(http.MethodPost, "/updates", sequence(
			reply{status: 404, body: `{}`},
			reply{status: 200, body: `{"matches":[]}`},
		))

		var mu sync.Mutex
		var batches int
		err := client.PollUpdates(ctx, 10*time.Millisecond, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			mu.Lock()
			defer mu.Unlock()
			batches++
			cancel()
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(batches).To(Equal(1))
		Expect(api.count()).To(Equal(2))
	})

	It("stops with the handler's error", func() {
		api.on(http.MethodPost, "/updates", always(200, `{"matches":[]}`))
		errStop := errors.New("stop here")

		err := client.PollUpdates(ctx, 10*time.Millisecond, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			return errStop
		})
		Expect(err).To(MatchError(errStop))
		Expect(api.count()).To(Equal(1))
	})

	It("stops when the session is rejected", func() {
		api.on(http.MethodPost, "/updates", always(401, `{}`))

		err := client.PollUpdates(ctx, 10*time.Millisecond, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			return nil
		})
		Expect(err).To(MatchError(tinder.ErrNotAuthorized))
	})

	It("stops without a session", func() {
		client.SetToken("")

		err := client.PollUpdates(ctx, 10*time.Millisecond, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			return nil
		})
		Expect(err).To(MatchError(tinder.ErrNotAuthorized))
		Expect(api.count()).To(Equal(0))
	})

	It("rejects a non-positive interval", func() {
		err := client.PollUpdates(ctx, 0, time.Time{}, func(ctx context.Context, updates json.RawMessage) error {
			return nil
		})
		Expect(err).To(MatchError(tinder.ErrInvalidArguments))
	})
})
