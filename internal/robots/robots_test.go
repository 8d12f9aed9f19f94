package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"imgharvest/internal/config"
)

func agentFor(t *testing.T, respect bool, robotsBody string) (*Agent, *url.URL) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte(robotsBody))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default().Robots
	cfg.Respect = respect
	return NewAgent(cfg, srv.Client()), base
}

func TestDisabledAgentAllowsEverything(t *testing.T) {
	agent, base := agentFor(t, false, "User-agent: *\nDisallow: /\n")
	target := base.JoinPath("/images/a.png")
	if !agent.Allowed(context.Background(), target) {
		t.Fatal("disabled agent must allow all URLs")
	}
}

func TestAgentHonoursDisallow(t *testing.T) {
	agent, base := agentFor(t, true, "User-agent: *\nDisallow: /private/\n")
	if agent.Allowed(context.Background(), base.JoinPath("/private/a.png")) {
		t.Fatal("expected /private/ to be disallowed")
	}
	if !agent.Allowed(context.Background(), base.JoinPath("/public/a.png")) {
		t.Fatal("expected /public/ to be allowed")
	}
}

func TestAgentFailsOpenWithoutRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default().Robots
	cfg.Respect = true
	agent := NewAgent(cfg, srv.Client())
	if !agent.Allowed(context.Background(), base.JoinPath("/a.png")) {
		t.Fatal("missing robots.txt must fail open")
	}
}

func TestAgentRejectsRelativeURL(t *testing.T) {
	agent, _ := agentFor(t, false, "")
	rel := &url.URL{Path: "/a.png"}
	if agent.Allowed(context.Background(), rel) {
		t.Fatal("relative URLs must be rejected")
	}
}
