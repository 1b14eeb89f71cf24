// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import "context"

// Verdict is the outcome of an automatic verification check.
type Verdict struct {
	Approved bool
	Reason   string
}

// Verifier resolves an automatic-method record at submit time.
//
// Implementations integrate with the channel that proves the claim: the OTP
// flow for email and phone, the OAuth exchange for social. A Verifier must
// be side-effect free on the record itself; the service applies the verdict.
type Verifier interface {
	Verify(ctx context.Context, record *Record) (Verdict, error)
}

// VerifierFunc adapts a function to the [Verifier] interface.
type VerifierFunc func(ctx context.Context, record *Record) (Verdict, error)

// Verify implements [Verifier].
func (f VerifierFunc) Verify(ctx context.Context, record *Record) (Verdict, error) {
	return f(ctx, record)
}

// ChallengeChecker reports whether the user has completed a recent one-time
// password challenge over the given channel. Implemented by the auth
// package's OTP repository.
type ChallengeChecker interface {
	WasRecentlyConfirmed(ctx context.Context, userID string, channel string) (bool, error)
}

// NewChannelVerifier builds a Verifier that approves when the user confirmed
// an OTP over the named channel ("email" or "phone") and rejects otherwise.
func NewChannelVerifier(checker ChallengeChecker, channel string) Verifier {
	return VerifierFunc(func(ctx context.Context, record *Record) (Verdict, error) {
		confirmed, err := checker.WasRecentlyConfirmed(ctx, record.UserID, channel)
		if err != nil {
			return Verdict{}, err
		}
		if !confirmed {
			return Verdict{Approved: false, Reason: "No confirmed " + channel + " challenge on file"}, nil
		}
		return Verdict{Approved: true, Reason: "Confirmed via " + channel + " challenge"}, nil
	})
}
