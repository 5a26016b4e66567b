package record

import (
	"dario.cat/mergo"

	"github.com/use-agent/vesselscout/models"
)

// Validator coerces a candidate value to the semantic type of a field and
// reports false to reject it.
type Validator func(f Field, candidate any) (any, bool)

// SetIfAbsent returns a copy of rec with f set to the validated candidate,
// and whether the value was accepted. rec itself is never modified. When f
// is already populated or validate rejects the candidate, the copy equals
// rec. A nil validate means Normalize.
func SetIfAbsent(rec models.VesselRecord, f Field, candidate any, validate Validator) (models.VesselRecord, bool) {
	if !f.Known() || IsSet(&rec, f) {
		return rec, false
	}
	if validate == nil {
		validate = Normalize
	}
	v, ok := validate(f, candidate)
	if !ok {
		return rec, false
	}
	assign(&rec, f, v)
	return rec, true
}

// Fill copies the fields present in src into the gaps of dst. Fields already
// populated in dst, including its provider tags, are kept.
func Fill(dst, src models.VesselRecord) (models.VesselRecord, error) {
	out := dst
	if err := mergo.Merge(&out, src, mergo.WithoutDereference); err != nil {
		return dst, err
	}
	return out, nil
}
