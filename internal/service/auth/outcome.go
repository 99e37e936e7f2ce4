package auth

import "errors"

// Outcome classifies one authentication attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoToken
	OutcomeExpired
	OutcomeDecodeError
	OutcomeInvalidToken
	OutcomeMissingClaim
)

// String returns the name reported to clients as the 401 hint.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeNoToken:
		return "NO_TOKEN"
	case OutcomeExpired:
		return "EXPIRED"
	case OutcomeDecodeError:
		return "DECODE_ERROR"
	case OutcomeInvalidToken:
		return "INVALID_TOKEN"
	case OutcomeMissingClaim:
		return "MISSING_CLAIM"
	default:
		return "UNKNOWN"
	}
}

// outcomeForDecodeError maps a Codec.Decode failure onto an outcome.
func outcomeForDecodeError(err error) Outcome {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return OutcomeExpired
	case errors.Is(err, ErrDecode):
		return OutcomeDecodeError
	default:
		return OutcomeInvalidToken
	}
}
