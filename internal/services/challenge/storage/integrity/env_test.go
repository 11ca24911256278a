package integrity

import "testing"

func TestKeyringFromEnvRequiresKey(t *testing.T) {
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY", "")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEYS", "")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY_ID", "")

	if _, err := KeyringFromEnv(); err == nil {
		t.Fatal("expected error when no key is configured")
	}
}

func TestKeyringFromEnvSingleKey(t *testing.T) {
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY", "secret")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEYS", "   ")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY_ID", "   ")

	ring, err := KeyringFromEnv()
	if err != nil {
		t.Fatalf("keyring from env: %v", err)
	}
	if ring.ActiveKeyID() != "v1" {
		t.Fatalf("expected default key id v1, got %s", ring.ActiveKeyID())
	}
}

func TestKeyringFromEnvKeySpec(t *testing.T) {
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY", "")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEYS", "k1=one, k2=two")
	t.Setenv("WAGER_SPACE_EVENT_HMAC_KEY_ID", "k2")

	ring, err := KeyringFromEnv()
	if err != nil {
		t.Fatalf("keyring from env: %v", err)
	}
	if ring.ActiveKeyID() != "k2" {
		t.Fatalf("active key = %s, want k2", ring.ActiveKeyID())
	}
}

func TestKeyringFromConfigRejectsMalformedEntries(t *testing.T) {
	for _, entry := range []string{"k1", "=one", "k1="} {
		if _, err := KeyringFromConfig(EnvConfig{Keys: entry, KeyID: "k1"}); err == nil {
			t.Fatalf("expected error for entry %q", entry)
		}
	}
	if _, err := KeyringFromConfig(EnvConfig{Keys: "k1=one", KeyID: "k9"}); err == nil {
		t.Fatal("expected error for unknown active key id")
	}
}
