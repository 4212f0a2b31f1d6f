package lifecycle

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hivelabs/hive-server/internal/models"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func hiveAt(mode models.VisibilityMode, revealOffset *int64, closesOffset int64) *models.Hive {
	h := &models.Hive{
		ID:            "h",
		Title:         "t",
		RecipientName: "r",
		Mode:          mode,
		ClosesAt:      epoch.Add(time.Duration(closesOffset) * time.Second),
	}
	if revealOffset != nil {
		t := epoch.Add(time.Duration(*revealOffset) * time.Second)
		h.RevealAt = &t
	}
	return h
}

func TestIsClosedMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("once closed, a hive stays closed at every later instant", prop.ForAll(
		func(closesOffset, t1Offset, delta int64) bool {
			h := hiveAt(models.ModeLive, nil, closesOffset)
			t1 := epoch.Add(time.Duration(t1Offset) * time.Second)
			t2 := t1.Add(time.Duration(delta) * time.Second)
			if !IsClosed(h, t1) {
				return true
			}
			return IsClosed(h, t2)
		},
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(0, 100000),
	))

	properties.Property("closure happens exactly at closes_at", prop.ForAll(
		func(closesOffset int64) bool {
			h := hiveAt(models.ModeLive, nil, closesOffset)
			return IsClosed(h, h.ClosesAt) && !IsClosed(h, h.ClosesAt.Add(-time.Nanosecond))
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}

func TestIsRevealedMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("once revealed, a hive stays revealed at every later instant", prop.ForAll(
		func(revealOffset, t1Offset, delta int64) bool {
			h := hiveAt(models.ModeReveal, &revealOffset, revealOffset+3600)
			t1 := epoch.Add(time.Duration(t1Offset) * time.Second)
			t2 := t1.Add(time.Duration(delta) * time.Second)
			if !IsRevealed(h, t1) {
				return true
			}
			return IsRevealed(h, t2)
		},
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(0, 100000),
	))

	properties.Property("live hives are revealed at any instant", prop.ForAll(
		func(nowOffset int64) bool {
			h := hiveAt(models.ModeLive, nil, 3600)
			return IsRevealed(h, epoch.Add(time.Duration(nowOffset)*time.Second))
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.Property("reveal mode without a reveal time is never revealed", prop.ForAll(
		func(nowOffset int64) bool {
			h := hiveAt(models.ModeReveal, nil, 3600)
			return !IsRevealed(h, epoch.Add(time.Duration(nowOffset)*time.Second))
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}

func TestCanRead(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("unauthorized callers never read, revealed or not", prop.ForAll(
		func(revealOffset, nowOffset int64) bool {
			h := hiveAt(models.ModeReveal, &revealOffset, revealOffset+3600)
			return !CanRead(models.RoleUnauthorized, h, epoch.Add(time.Duration(nowOffset)*time.Second))
		},
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(-100000, 100000),
	))

	properties.Property("no role bypasses reveal gating, not even the moderator", prop.ForAll(
		func(nowOffset int64) bool {
			revealOffset := nowOffset + 1 // always in the future
			h := hiveAt(models.ModeReveal, &revealOffset, revealOffset+3600)
			now := epoch.Add(time.Duration(nowOffset) * time.Second)
			return !CanRead(models.RoleModerator, h, now) && !CanRead(models.RoleRecipient, h, now)
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.Property("authorized roles read exactly when revealed", prop.ForAll(
		func(revealOffset, nowOffset int64) bool {
			h := hiveAt(models.ModeReveal, &revealOffset, revealOffset+3600)
			now := epoch.Add(time.Duration(nowOffset) * time.Second)
			return CanRead(models.RoleModerator, h, now) == IsRevealed(h, now)
		},
		gen.Int64Range(-100000, 100000),
		gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}

func TestCanSubmit(t *testing.T) {
	h := hiveAt(models.ModeLive, nil, 0)

	if CanSubmit(h, epoch) {
		t.Error("expected submission rejected at the closing instant")
	}
	if !CanSubmit(h, epoch.Add(-time.Second)) {
		t.Error("expected submission accepted before closing")
	}
}
