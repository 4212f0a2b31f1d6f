package harvest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hivelabs/hive-server/internal/access"
	"github.com/hivelabs/hive-server/internal/harvest"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/store/storetest"
	"github.com/hivelabs/hive-server/internal/validation"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

// recordingNotifier captures deliveries and fails the addresses it is told
// to fail.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	fail  map[string]bool
	delay time.Duration
}

func (n *recordingNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[recipient] {
		return errors.New("delivery refused")
	}
	n.sent = append(n.sent, recipient)
	return nil
}

func (n *recordingNotifier) deliveries() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type fixture struct {
	store    *storetest.Store
	hives    *hive.Service
	orch     *harvest.Orchestrator
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.New()
	accessSvc := access.NewService(st, nil)
	notifier := &recordingNotifier{fail: make(map[string]bool)}
	return &fixture{
		store:    st,
		hives:    hive.NewService(st, accessSvc, nil),
		orch:     harvest.NewOrchestrator(st, accessSvc, notifier, "https://hive.example.com/", nil),
		notifier: notifier,
	}
}

// closedHive creates a live hive whose closing time is already behind the
// test epoch.
func (f *fixture) closedHive(t *testing.T) *hive.CreateResult {
	t.Helper()
	res, err := f.hives.Create(context.Background(), &validation.HiveInput{
		Title:         "Farewell Dana",
		RecipientName: "Dana",
		Mode:          "live",
		ClosesAt:      timePtr(epoch.Add(-time.Hour)),
	})
	if err != nil {
		t.Fatalf("creating hive: %v", err)
	}
	return res
}

func (f *fixture) subscribe(t *testing.T, hiveID string, emails ...string) {
	t.Helper()
	for _, email := range emails {
		if _, err := f.hives.Subscribe(context.Background(), hiveID, email); err != nil {
			t.Fatalf("subscribing %q: %v", email, err)
		}
	}
}

func TestHarvestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.closedHive(t)

	t.Run("unknown hive", func(t *testing.T) {
		_, err := f.orch.Harvest(ctx, "no-such-hive", res.ModeratorToken, "thanks", epoch)
		if !errors.Is(err, hive.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := f.orch.Harvest(ctx, res.Hive.ID, "bogus", "thanks", epoch)
		if !errors.Is(err, hive.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("blank thank-you message", func(t *testing.T) {
		_, err := f.orch.Harvest(ctx, res.Hive.ID, res.ModeratorToken, "   ", epoch)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "thank_you_message" {
			t.Fatalf("expected thank_you_message validation error, got %v", err)
		}
	})

	t.Run("hive still open", func(t *testing.T) {
		open, err := f.hives.Create(ctx, &validation.HiveInput{
			Title:         "Farewell Dana",
			RecipientName: "Dana",
			Mode:          "live",
			ClosesAt:      timePtr(epoch.Add(time.Hour)),
		})
		if err != nil {
			t.Fatalf("creating hive: %v", err)
		}
		_, err = f.orch.Harvest(ctx, open.Hive.ID, open.ModeratorToken, "thanks", epoch)
		if !errors.Is(err, harvest.ErrNotClosed) {
			t.Fatalf("expected ErrNotClosed, got %v", err)
		}
	})

	t.Run("no precondition failure marks the hive", func(t *testing.T) {
		h, err := f.store.Hives().Get(ctx, res.Hive.ID)
		if err != nil {
			t.Fatalf("fetching hive: %v", err)
		}
		if h.Harvested() {
			t.Error("failed attempts must not harvest the hive")
		}
	})
}

func TestHarvestRecipientMayHarvest(t *testing.T) {
	f := newFixture(t)
	res := f.closedHive(t)

	sent, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.RecipientToken, "thank you all", epoch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected 0 notifications with no subscribers, got %d", sent)
	}

	h, err := f.store.Hives().Get(context.Background(), res.Hive.ID)
	if err != nil || h == nil {
		t.Fatalf("fetching hive: %v", err)
	}
	if !h.Harvested() || h.ThankYouMessage != "thank you all" {
		t.Errorf("expected harvested hive with thank-you recorded, got %+v", h)
	}
}

func TestHarvestSecondAttemptRejected(t *testing.T) {
	f := newFixture(t)
	res := f.closedHive(t)
	f.subscribe(t, res.Hive.ID, "bee@example.com")

	if _, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.ModeratorToken, "thanks", epoch); err != nil {
		t.Fatalf("first harvest: %v", err)
	}
	_, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.ModeratorToken, "thanks again", epoch)
	if !errors.Is(err, harvest.ErrAlreadyHarvested) {
		t.Fatalf("expected ErrAlreadyHarvested, got %v", err)
	}
	if got := len(f.notifier.deliveries()); got != 1 {
		t.Errorf("expected exactly one notification batch, got %d deliveries", got)
	}
}

func TestHarvestFanOut(t *testing.T) {
	t.Run("dedupes and drops blanks", func(t *testing.T) {
		f := newFixture(t)
		res := f.closedHive(t)
		f.subscribe(t, res.Hive.ID,
			"bee@example.com",
			"Bee@Example.com",
			"wasp@example.com",
		)
		// Blank addresses cannot come in through Subscribe; plant one
		// directly to cover legacy rows.
		err := f.store.Subscribers().Create(context.Background(), &models.HarvestSubscriber{
			HiveID: res.Hive.ID,
			Email:  "   ",
		})
		if err != nil {
			t.Fatalf("planting blank subscriber: %v", err)
		}

		sent, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.ModeratorToken, "thanks", epoch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 2 {
			t.Errorf("expected 2 distinct deliveries, got %d", sent)
		}
	})

	t.Run("one failing address does not abort the batch", func(t *testing.T) {
		f := newFixture(t)
		res := f.closedHive(t)
		f.subscribe(t, res.Hive.ID, "bee@example.com", "wasp@example.com", "ant@example.com")
		f.notifier.fail["wasp@example.com"] = true

		sent, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.ModeratorToken, "thanks", epoch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 2 {
			t.Errorf("expected 2 successful deliveries, got %d", sent)
		}
	})

	t.Run("slow deliveries are cut off by the per-address timeout", func(t *testing.T) {
		f := newFixture(t)
		res := f.closedHive(t)
		f.subscribe(t, res.Hive.ID, "bee@example.com")
		f.notifier.delay = 50 * time.Millisecond
		f.orch.SetNotifyTimeout(time.Millisecond)

		sent, err := f.orch.Harvest(context.Background(), res.Hive.ID, res.ModeratorToken, "thanks", epoch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 0 {
			t.Errorf("expected timed-out delivery not counted, got %d", sent)
		}
	})
}

func TestHarvestConcurrentSingleWinner(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one of N concurrent harvests succeeds", prop.ForAll(
		func(n int) bool {
			f := newFixture(t)
			res := f.closedHive(t)
			f.subscribe(t, res.Hive.ID, "bee@example.com", "wasp@example.com")

			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = f.orch.Harvest(
						context.Background(), res.Hive.ID, res.ModeratorToken,
						fmt.Sprintf("thanks from caller %d", i), epoch,
					)
				}(i)
			}
			wg.Wait()

			won := 0
			for _, err := range errs {
				switch {
				case err == nil:
					won++
				case errors.Is(err, harvest.ErrAlreadyHarvested):
				default:
					return false
				}
			}
			// One winner, and the fan-out ran exactly once.
			return won == 1 && len(f.notifier.deliveries()) == 2
		},
		gen.IntRange(2, 16),
	))

	properties.TestingRun(t)
}
