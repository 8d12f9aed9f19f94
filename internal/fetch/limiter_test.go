package fetch

import (
	"context"
	"testing"
	"time"

	"imgharvest/internal/config"
)

func TestDomainLimiterDelaysRepeatHost(t *testing.T) {
	cfg := config.Default().Fetch
	cfg.PerDomainDelay = config.DurationFrom(30 * time.Millisecond)
	limiter := NewDomainLimiter(cfg)

	ctx := context.Background()
	if err := limiter.Wait(ctx, "ex.com"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "ex.com"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("second wait returned too quickly: %v", elapsed)
	}
}

func TestDomainLimiterIndependentHosts(t *testing.T) {
	cfg := config.Default().Fetch
	cfg.PerDomainDelay = config.DurationFrom(200 * time.Millisecond)
	limiter := NewDomainLimiter(cfg)

	ctx := context.Background()
	if err := limiter.Wait(ctx, "a.com"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "b.com"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("different host should not be delayed: %v", elapsed)
	}
}

func TestDomainLimiterCancellation(t *testing.T) {
	cfg := config.Default().Fetch
	cfg.PerDomainDelay = config.DurationFrom(5 * time.Second)
	limiter := NewDomainLimiter(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	if err := limiter.Wait(ctx, "ex.com"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := limiter.Wait(ctx, "ex.com"); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDomainLimiterNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default().Fetch
	limiter := NewDomainLimiter(cfg)
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := limiter.Wait(context.Background(), "ex.com"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("unconfigured limiter should not block: %v", elapsed)
	}
}
