package utils

import "testing"

func TestClaimScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if claimAcquireScript == nil || claimReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
