// internal/config/config_test.go
package config

import "testing"

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	cfg.Profiles = BundledProfiles()
	cfg.DefaultProfile = "standard_validation"

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestBundledProfilesSumToOne(t *testing.T) {
	for name, profile := range BundledProfiles() {
		if err := ValidateProfile(name, profile); err != nil {
			t.Errorf("profile %s failed validation: %v", name, err)
		}
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	bad := ScoringProfile{
		Name:      "bad",
		TestLevel: "standard",
		Weights:   ScoringWeights{ConnectionSuccess: 0.5},
	}
	if err := ValidateProfile("bad", bad); err == nil {
		t.Fatal("expected error for weights that do not sum to 1")
	}
}

func TestValidateRejectsUnknownDatabaseType(t *testing.T) {
	cfg := Defaults()
	cfg.Profiles = BundledProfiles()
	cfg.DefaultProfile = "standard_validation"
	cfg.Database.Type = "mongodb"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestValidateRejectsDangerousSelector(t *testing.T) {
	cfg := Defaults()
	cfg.Profiles = BundledProfiles()
	cfg.DefaultProfile = "standard_validation"
	cfg.Sources = []SourceConfig{{
		Name:    "evil",
		Type:    "html_table",
		Enabled: true,
		Selectors: HTMLSelectors{
			ContainerRow: "tr",
			IPCell:       `td[style="expression(alert(1))"]`,
		},
	}}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for selector containing a CSS expression")
	}
}

func TestValidateAcceptsOrdinarySelectors(t *testing.T) {
	cfg := Defaults()
	cfg.Profiles = BundledProfiles()
	cfg.DefaultProfile = "standard_validation"
	cfg.Sources = []SourceConfig{{
		Name:    "freeproxylist",
		Type:    "html_table",
		Enabled: true,
		Selectors: HTMLSelectors{
			ContainerRow: "tr",
			IPCell:       "td:nth-child(1)",
			PortCell:     "td:nth-child(2)",
		},
	}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("ordinary selectors should validate: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaultsAndBundledProfiles(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") should succeed with defaults: %v", err)
	}
	if len(cfg.Profiles) != 5 {
		t.Errorf("expected 5 bundled profiles, got %d", len(cfg.Profiles))
	}
	if cfg.DefaultProfile != "standard_validation" {
		t.Errorf("expected default profile 'standard_validation', got %q", cfg.DefaultProfile)
	}
}
