// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package verification implements the identity verification engine: the ordered
ladder of trust levels users climb one step at a time, and the records that
track each climb attempt through its state machine.

# State Machine

	PENDING ──────► APPROVED | REJECTED | EXPIRED | CANCELLED
	   │
	   └──────────► MANUAL_REVIEW ──► APPROVED | REJECTED | EXPIRED | CANCELLED

APPROVED, REJECTED, EXPIRED, and CANCELLED are terminal. A user may hold at
most one open (non-terminal) record at a time; this is enforced both in the
service and by a partial unique index in PostgreSQL, so a concurrent double
submit loses cleanly at the database.
*/
package verification

import (
	"time"
)

// # Trust Levels

// Level bounds for the verification ladder.
const (
	LevelMin = 0
	LevelMax = 4
)

// # Record Status

// Status is the lifecycle state of a verification record.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusManualReview Status = "MANUAL_REVIEW"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
	StatusExpired      Status = "EXPIRED"
	StatusCancelled    Status = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case StatusPending:
		switch next {
		case StatusManualReview, StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
			return true
		}
	case StatusManualReview:
		switch next {
		case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
			return true
		}
	}
	return false
}

// # Methods

// Method is the mechanism used to prove a verification claim.
type Method string

const (
	MethodEmail     Method = "EMAIL"
	MethodPhone     Method = "PHONE"
	MethodDocument  Method = "DOCUMENT"
	MethodManual    Method = "MANUAL"
	MethodBiometric Method = "BIOMETRIC"
	MethodSocial    Method = "SOCIAL"
	MethodProvider  Method = "PROVIDER"
	MethodBank      Method = "BANK"
)

// IsValid reports whether the method is one of the known mechanisms.
func (m Method) IsValid() bool {
	switch m {
	case MethodEmail, MethodPhone, MethodDocument, MethodManual,
		MethodBiometric, MethodSocial, MethodProvider, MethodBank:
		return true
	}
	return false
}

// IsAutomatic reports whether the method resolves synchronously at submit
// time instead of waiting for a reviewer. An automatic method without a
// registered verifier stays open like a manual one.
func (m Method) IsAutomatic() bool {
	switch m {
	case MethodEmail, MethodPhone, MethodSocial, MethodProvider, MethodBank:
		return true
	}
	return false
}

// # Document Types

// DocumentType classifies the document backing a DOCUMENT-method record.
type DocumentType string

const (
	DocumentNIN            DocumentType = "NIN"
	DocumentDriversLicense DocumentType = "DRIVERS_LICENSE"
	DocumentPassport       DocumentType = "PASSPORT"
	DocumentCAC            DocumentType = "CAC"
	DocumentTIN            DocumentType = "TIN"
	DocumentVotersCard     DocumentType = "VOTERS_CARD"
	DocumentPVC            DocumentType = "PVC"
	DocumentOther          DocumentType = "OTHER"
)

// IsValid reports whether the document type is recognized.
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentNIN, DocumentDriversLicense, DocumentPassport, DocumentCAC,
		DocumentTIN, DocumentVotersCard, DocumentPVC, DocumentOther:
		return true
	}
	return false
}

// # Record

// Record is one attempt to climb from the user's current level to TargetLevel.
type Record struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// TargetLevel is always exactly one above the user's level at submit time.
	TargetLevel int `json:"target_level"`

	Status Status `json:"status"`
	Method Method `json:"method"`

	// DocumentType, DocumentRef, and DocumentHash are set only for
	// DOCUMENT-method records. DocumentHash is the SHA-256 digest of the
	// submitted document's content; raw documents never reach this service.
	DocumentType DocumentType `json:"document_type,omitempty"`
	DocumentRef  string       `json:"document_ref,omitempty"`
	DocumentHash string       `json:"document_hash,omitempty"`

	// ReviewerID is the actor who made the terminal decision, empty for
	// automatic methods and system expiry.
	ReviewerID string `json:"reviewer_id,omitempty"`

	// Reason is mandatory for rejections and carries the verifier's note
	// for automatic decisions.
	Reason string `json:"reason,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	// ExpiresAt bounds how long an open record may wait for a decision.
	// Approval rewrites it to the grant's validity deadline; a lapsed grant
	// no longer backs the user's level.
	ExpiresAt time.Time `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the record still accepts decisions.
func (r *Record) IsOpen() bool {
	return !r.Status.IsTerminal()
}
