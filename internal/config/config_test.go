package config

import "testing"

func TestResolvedAuthMode(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit wins", Config{Env: "development", AuthMode: "token"}, "token"},
		{"dev default", Config{Env: "development"}, "development"},
		{"production default", Config{Env: "production"}, "token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.ResolvedAuthMode(); got != tc.want {
				t.Errorf("expected mode %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidate_TokenModeRequiresSecret(t *testing.T) {
	cfg := Config{Env: "production", SLASweepIntervalSecs: 60}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing AUTH_SECRET in token mode")
	}
}

func TestValidate_ShortSecretRejected(t *testing.T) {
	cfg := Config{Env: "production", AuthSecret: "short", SLASweepIntervalSecs: 60}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short AUTH_SECRET")
	}
}

func TestValidate_DevModeOK(t *testing.T) {
	cfg := Config{Env: "development", SLASweepIntervalSecs: 60}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SweepIntervalRequired(t *testing.T) {
	cfg := Config{Env: "development"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive sweep interval")
	}
}
