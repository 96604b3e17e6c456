package security

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// ContentHash fingerprints import content for the immutable cache and
// the approval-prompt dedup key (spec §4.4.3 step 4, §4.7), grounded
// on the teacher's blake2b content hashing in core/sdk/secret/idfactory.go.
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ApprovalPrompt asks the host to confirm an import keyed by URL and
// content hash (spec §4.4.3 "optional import-approval (user
// confirmation keyed by URL+content hash)"). The host supplies the
// actual interactive implementation; with a nil prompt,
// ApprovalGate.Check trusts content unconditionally.
type ApprovalPrompt func(url, contentHash string) (approved bool, err error)

// ImmutableCache is the §4.7 content-addressed cache: once a hash is
// verified/approved it's stored so later imports of the same content
// bypass re-approval and re-fetch.
type ImmutableCache struct {
	mu       sync.RWMutex
	approved map[string]struct{}
	content  map[string]string
}

func NewImmutableCache() *ImmutableCache {
	return &ImmutableCache{approved: map[string]struct{}{}, content: map[string]string{}}
}

// IsApproved reports whether contentHash was previously approved.
func (c *ImmutableCache) IsApproved(contentHash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.approved[contentHash]
	return ok
}

// Approve records contentHash as approved and caches its content.
func (c *ImmutableCache) Approve(contentHash, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approved[contentHash] = struct{}{}
	c.content[contentHash] = content
}

// Get returns cached content for a previously approved hash.
func (c *ImmutableCache) Get(contentHash string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.content[contentHash]
	return content, ok
}

// ApprovalGate wraps an ImmutableCache and an optional ApprovalPrompt
// into the single check an import performs before evaluating fetched
// content: cached hashes skip the prompt entirely.
type ApprovalGate struct {
	Cache  *ImmutableCache
	Prompt ApprovalPrompt
}

// Check verifies content is approved for use, prompting (and caching
// the result) if it has not been seen before. When Prompt is nil,
// content is trusted unconditionally (e.g. local file imports, which
// spec §4.4.3 only gates for URL imports).
func (g *ApprovalGate) Check(url, content string) error {
	hash := ContentHash([]byte(content))
	if g.Cache != nil && g.Cache.IsApproved(hash) {
		return nil
	}
	if g.Prompt == nil {
		if g.Cache != nil {
			g.Cache.Approve(hash, content)
		}
		return nil
	}
	approved, err := g.Prompt(url, hash)
	if err != nil {
		return err
	}
	if !approved {
		return &approvalDenied{url: url}
	}
	if g.Cache != nil {
		g.Cache.Approve(hash, content)
	}
	return nil
}

type approvalDenied struct{ url string }

func (e *approvalDenied) Error() string {
	return "import of " + e.url + " was not approved"
}
