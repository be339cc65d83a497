// Package model defines the shared types for the keysearch pipeline.
package model

// Fingerprint is a hex-encoded content digest identifying a candidate
// artifact. It is the identity key for checkpoint dedup and is never
// modified after the report is produced.
type Fingerprint string

// CandidateRecord is one parsed line of the checksum report.
type CandidateRecord struct {
	Label       string      `json:"label"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// VerifiedMatch is the fingerprint/key pair confirmed by two independent,
// agreeing oracle responses. At most one is produced per run; producing it
// halts the pipeline.
type VerifiedMatch struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Key         string      `json:"key"`
}
