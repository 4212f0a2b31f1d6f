package hive_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hivelabs/hive-server/internal/access"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/store/storetest"
	"github.com/hivelabs/hive-server/internal/validation"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func newService(t *testing.T) (*hive.Service, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	return hive.NewService(st, access.NewService(st, nil), nil), st
}

func createHive(t *testing.T, svc *hive.Service, in *validation.HiveInput) *hive.CreateResult {
	t.Helper()
	res, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating hive: %v", err)
	}
	return res
}

func liveInput(closesAt time.Time) *validation.HiveInput {
	return &validation.HiveInput{
		Title:         "Farewell Dana",
		RecipientName: "Dana",
		Mode:          "live",
		ClosesAt:      timePtr(closesAt),
	}
}

func TestCreate(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	t.Run("issues two distinct 64-character tokens", func(t *testing.T) {
		res := createHive(t, svc, liveInput(epoch.Add(time.Hour)))
		if len(res.ModeratorToken) != 64 || len(res.RecipientToken) != 64 {
			t.Fatalf("expected 64-character tokens, got %d and %d",
				len(res.ModeratorToken), len(res.RecipientToken))
		}
		if res.ModeratorToken == res.RecipientToken {
			t.Error("moderator and recipient tokens must differ")
		}
		if res.Hive.ID == "" {
			t.Error("expected hive ID assigned")
		}
	})

	t.Run("hive and secrets are both persisted", func(t *testing.T) {
		res := createHive(t, svc, liveInput(epoch.Add(time.Hour)))

		h, err := st.Hives().Get(ctx, res.Hive.ID)
		if err != nil || h == nil {
			t.Fatalf("expected persisted hive, got %v (%v)", h, err)
		}
		sec, err := st.Secrets().Get(ctx, res.Hive.ID)
		if err != nil || sec == nil {
			t.Fatalf("expected persisted secrets, got %v (%v)", sec, err)
		}
		if sec.ModeratorToken != res.ModeratorToken {
			t.Error("persisted moderator token does not match the issued one")
		}
	})

	t.Run("invalid input persists nothing", func(t *testing.T) {
		in := liveInput(epoch.Add(time.Hour))
		in.Mode = "reveal" // reveal without reveal_at
		_, err := svc.Create(ctx, in)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestSubmitMessage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	open := createHive(t, svc, liveInput(epoch.Add(time.Hour))).Hive
	closed := createHive(t, svc, liveInput(epoch.Add(-time.Hour))).Hive

	t.Run("open hive accepts and trims", func(t *testing.T) {
		msg, err := svc.SubmitMessage(ctx, open.ID, " Darrell ", " so long ", epoch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.ContributorName != "Darrell" || msg.Message != "so long" {
			t.Errorf("expected trimmed fields, got %q / %q", msg.ContributorName, msg.Message)
		}
	})

	t.Run("closed hive rejects", func(t *testing.T) {
		_, err := svc.SubmitMessage(ctx, closed.ID, "Darrell", "too late", epoch)
		if !errors.Is(err, hive.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("closing instant rejects", func(t *testing.T) {
		_, err := svc.SubmitMessage(ctx, open.ID, "Darrell", "boundary", open.ClosesAt)
		if !errors.Is(err, hive.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("unknown hive", func(t *testing.T) {
		_, err := svc.SubmitMessage(ctx, "no-such-hive", "Darrell", "hi", epoch)
		if !errors.Is(err, hive.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("validation precedes the closure gate", func(t *testing.T) {
		_, err := svc.SubmitMessage(ctx, closed.ID, "", "", epoch)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestListMessages(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res := createHive(t, svc, liveInput(epoch.Add(time.Hour)))
	for i := 0; i < 3; i++ {
		at := epoch.Add(time.Duration(i) * time.Minute)
		if _, err := svc.SubmitMessage(ctx, res.Hive.ID, "Darrell", fmt.Sprintf("note %d", i), at); err != nil {
			t.Fatalf("submitting message: %v", err)
		}
	}

	t.Run("no token is unauthorized", func(t *testing.T) {
		_, err := svc.ListMessages(ctx, res.Hive.ID, "", epoch)
		if !errors.Is(err, hive.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("wrong token is unauthorized", func(t *testing.T) {
		_, err := svc.ListMessages(ctx, res.Hive.ID, "bogus", epoch)
		if !errors.Is(err, hive.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("live hive lists newest first for both roles", func(t *testing.T) {
		for _, token := range []string{res.ModeratorToken, res.RecipientToken} {
			msgs, err := svc.ListMessages(ctx, res.Hive.ID, token, epoch.Add(5*time.Minute))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msgs) != 3 {
				t.Fatalf("expected 3 messages, got %d", len(msgs))
			}
			for i := 1; i < len(msgs); i++ {
				if msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
					t.Error("expected newest-first ordering")
				}
			}
		}
	})
}

func TestListMessagesRevealGate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	revealAt := epoch.Add(time.Hour)
	res := createHive(t, svc, &validation.HiveInput{
		Title:         "Farewell Dana",
		RecipientName: "Dana",
		Mode:          "reveal",
		RevealAt:      timePtr(revealAt),
		ClosesAt:      timePtr(epoch.Add(30 * time.Minute)),
	})

	t.Run("before reveal even the moderator is refused", func(t *testing.T) {
		_, err := svc.ListMessages(ctx, res.Hive.ID, res.ModeratorToken, epoch)
		if !errors.Is(err, hive.ErrNotRevealed) {
			t.Fatalf("expected ErrNotRevealed, got %v", err)
		}
	})

	t.Run("reveal instant opens reads", func(t *testing.T) {
		if _, err := svc.ListMessages(ctx, res.Hive.ID, res.RecipientToken, revealAt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSubscribe(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	res := createHive(t, svc, liveInput(epoch.Add(time.Hour)))

	sub, err := svc.Subscribe(ctx, res.Hive.ID, "  bee@example.com ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Email != "bee@example.com" {
		t.Errorf("expected trimmed email, got %q", sub.Email)
	}

	emails, err := st.Subscribers().ListEmails(ctx, res.Hive.ID)
	if err != nil || len(emails) != 1 {
		t.Fatalf("expected one persisted subscriber, got %v (%v)", emails, err)
	}

	if _, err := svc.Subscribe(ctx, "no-such-hive", "bee@example.com"); !errors.Is(err, hive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var vErr *models.ValidationError
	if _, err := svc.Subscribe(ctx, res.Hive.ID, "not-an-address"); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitAcceptedExactlyWhileOpen(t *testing.T) {
	svc, _ := newService(t)
	res := createHive(t, svc, liveInput(epoch))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("submission succeeds iff the instant precedes closes_at", prop.ForAll(
		func(nowOffset int64) bool {
			now := epoch.Add(time.Duration(nowOffset) * time.Second)
			_, err := svc.SubmitMessage(context.Background(), res.Hive.ID, "Darrell", "hello", now)
			if now.Before(epoch) {
				return err == nil
			}
			return errors.Is(err, hive.ErrClosed)
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}
