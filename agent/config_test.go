package agent

import "testing"

func TestConfig_MergeOverridesOnlySetFields(t *testing.T) {
	base := DefaultConfig()
	retries := 7

	merged := base.Merge(ConfigPatch{MaxRetries: &retries})

	if merged.MaxRetries != 7 {
		t.Fatalf("expected MaxRetries overridden to 7, got %d", merged.MaxRetries)
	}
	if merged.RetryBaseDelayMS != base.RetryBaseDelayMS {
		t.Fatalf("expected untouched field to be unchanged, got %d", merged.RetryBaseDelayMS)
	}
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	if _, err := LoadConfigFile("/nonexistent/path/to/config.yaml"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
