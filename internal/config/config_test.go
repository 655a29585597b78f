package config

import (
	"testing"
	"time"
)

func TestParseWatches(t *testing.T) {
	watches, err := parseWatches("Bskt1/Owner1, Bskt2/Owner2")
	if err != nil {
		t.Fatalf("parseWatches: %v", err)
	}
	if len(watches) != 2 {
		t.Fatalf("got %d watches, want 2", len(watches))
	}
	if watches[0].Basket != "Bskt1" || watches[0].Owner != "Owner1" {
		t.Errorf("first watch: %+v", watches[0])
	}
}

func TestParseWatches_Empty(t *testing.T) {
	watches, err := parseWatches("")
	if err != nil || watches != nil {
		t.Errorf("empty input: got %v, %v", watches, err)
	}
}

func TestParseWatches_Malformed(t *testing.T) {
	for _, in := range []string{"justonebasket", "a/b/c", "/owner", "basket/"} {
		if _, err := parseWatches(in); err == nil {
			t.Errorf("parseWatches(%q): expected error", in)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 10*time.Second {
		t.Errorf("interval: got %v, want 10s", cfg.RefreshInterval)
	}
	if cfg.OpenFeeBps != 10 || cfg.CloseFeeBps != 10 {
		t.Errorf("fee bps: got %d/%d, want 10/10", cfg.OpenFeeBps, cfg.CloseFeeBps)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BASKET_REFRESH_INTERVAL", "3s")
	t.Setenv("BASKET_OPEN_FEE_BPS", "25")
	t.Setenv("BASKET_WATCH", "BsktX/OwnerY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 3*time.Second {
		t.Errorf("interval: got %v, want 3s", cfg.RefreshInterval)
	}
	if cfg.OpenFeeBps != 25 {
		t.Errorf("open fee: got %d, want 25", cfg.OpenFeeBps)
	}
	if len(cfg.Watches) != 1 || cfg.Watches[0].Basket != "BsktX" {
		t.Errorf("watches: %+v", cfg.Watches)
	}
}
