package tracker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/vcon-telephony-adapters/pkg/utils"
)

// ClaimGuard is an optional Redis layer in front of a Tracker. It holds a
// short-lived cross-replica claim per recording id so two replicas behind
// the same webhook endpoint do not both start processing before either has
// persisted an entry. The guard is advisory: the Tracker's Claim stays the
// source of truth, and a Redis outage degrades to per-replica idempotence
// rather than blocking intake.
type ClaimGuard struct {
	rdb   *redis.Client
	owner string
	ttl   time.Duration
}

// NewClaimGuard builds a guard with the given replica-unique owner token.
func NewClaimGuard(rdb *redis.Client, owner string, ttl time.Duration) *ClaimGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ClaimGuard{rdb: rdb, owner: owner, ttl: ttl}
}

// Acquire takes the cross-replica claim. The error is only informational;
// callers proceed on (true, err) semantics decided by the handler.
func (g *ClaimGuard) Acquire(ctx context.Context, recordingID string) (bool, error) {
	return utils.AcquireRecordingClaim(ctx, g.rdb, claimKey(recordingID), g.owner, g.ttl)
}

// Release drops the claim if this replica still owns it. Called when the
// local Tracker refused the claim and no entry will be written.
func (g *ClaimGuard) Release(ctx context.Context, recordingID string) error {
	return utils.ReleaseRecordingClaim(ctx, g.rdb, claimKey(recordingID), g.owner)
}

func claimKey(recordingID string) string {
	return "adapter:claim:" + recordingID
}
