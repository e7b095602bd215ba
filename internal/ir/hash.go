package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainDesign   = "blockgen/design/v1"
	DomainKind     = "blockgen/kind/v1"
	DomainOutcome  = "blockgen/outcome/v1"
	DomainScenario = "blockgen/scenario/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DesignFingerprint computes the content hash of a design's canonical object.
// Two designs with the same instances, parameter values and connections have
// the same fingerprint regardless of construction order of map-backed fields.
func DesignFingerprint(design IRObject) (string, error) {
	canonical, err := MarshalCanonical(design)
	if err != nil {
		return "", fmt.Errorf("DesignFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDesign, canonical), nil
}

// KindHash computes the content hash of a kind declaration. Registries use
// it to tell an identical re-registration from a conflicting one in logs.
func KindHash(k KindSpec) (string, error) {
	canonical, err := MarshalCanonical(k.ToIR())
	if err != nil {
		return "", fmt.Errorf("KindHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainKind, canonical), nil
}

// OutcomeHash computes the content hash of a stored design outcome. The
// store keeps it beside the outcome JSON so a later read can detect edits.
func OutcomeHash(outcome IRObject) (string, error) {
	canonical, err := MarshalCanonical(outcome)
	if err != nil {
		return "", fmt.Errorf("OutcomeHash: failed to marshal: %w", err)
	}
	return OutcomeHashJSON(canonical), nil
}

// OutcomeHashJSON hashes outcome JSON that is already canonical, as read
// back from storage.
func OutcomeHashJSON(canonical []byte) string {
	return hashWithDomain(DomainOutcome, canonical)
}

// ScenarioHash computes the content hash of a sweep's base scenario. Runs
// sharing a base hash are comparable point by point.
func ScenarioHash(scenario IRObject) (string, error) {
	canonical, err := MarshalCanonical(scenario)
	if err != nil {
		return "", fmt.Errorf("ScenarioHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScenario, canonical), nil
}
