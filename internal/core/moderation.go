package core

import "strings"

// ModerationPolicy is the process-wide content policy. It is treated as an
// immutable snapshot: administrative updates swap the whole value, ingestion
// paths read whichever snapshot is current.
type ModerationPolicy struct {
	BlockedTerms          []string
	MaxMessagesPerMinute  int
	MuteDurationMinutes   int
	AutoModerationEnabled bool
}

// DefaultModerationPolicy returns the starting policy.
func DefaultModerationPolicy() *ModerationPolicy {
	return &ModerationPolicy{
		MaxMessagesPerMinute:  10,
		MuteDurationMinutes:   5,
		AutoModerationEnabled: true,
	}
}

// Normalize lowercases blocked terms and drops empty ones. Matching is done
// against the lowercased body, so terms must be stored lowercased.
func (p *ModerationPolicy) Normalize() {
	terms := p.BlockedTerms[:0]
	for _, t := range p.BlockedTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	p.BlockedTerms = terms
}

// Moderate checks body against the policy. If a blocked term matches and
// auto-moderation is on, the returned body is the fixed placeholder and the
// second result is true. With auto-moderation off, matches are ignored
// entirely; the flag is a master switch.
func Moderate(body string, policy *ModerationPolicy) (string, bool) {
	if policy == nil || !policy.AutoModerationEnabled {
		return body, false
	}
	lowered := strings.ToLower(body)
	for _, term := range policy.BlockedTerms {
		if strings.Contains(lowered, term) {
			return ModeratedPlaceholder, true
		}
	}
	return body, false
}
