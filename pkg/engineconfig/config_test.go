package engineconfig

import "testing"

func TestConfigSetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()

	if c.AutoPruneKeepLatest != 5 {
		t.Errorf("AutoPruneKeepLatest default = %d, want 5", c.AutoPruneKeepLatest)
	}
	if c.HistoryRunsInjected != 10 {
		t.Errorf("HistoryRunsInjected default = %d, want 10", c.HistoryRunsInjected)
	}
	if c.Database == nil || c.Database.Driver != "sqlite" {
		t.Errorf("Database default driver = %+v, want sqlite", c.Database)
	}
	if c.Logger == nil || c.Logger.Level != "info" {
		t.Errorf("Logger default level = %+v, want info", c.Logger)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	c := Config{AutoPruneKeepLatest: 0, HistoryRunsInjected: -1}
	c.SetDefaults()
	c.HistoryRunsInjected = -1

	if err := c.Validate(); err == nil {
		t.Errorf("Validate() = nil, want error for negative history_runs_injected")
	}
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() after SetDefaults() = %v, want nil", err)
	}
}
