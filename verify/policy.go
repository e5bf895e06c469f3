package verify

// Comparison is the raw result of comparing two images
type Comparison struct {
	// Verified is the comparison capability's own verdict
	Verified bool
	// Distance between the two faces, lower is more similar
	Distance float64
	// Threshold is the distance cutoff the capability applied, if reported
	Threshold float64
	// Model is the face recognition model used
	Model string
}

// Policy decides whether a Comparison counts as a match.  Every enabled
// criterion must hold, and a policy with no criterion enabled never matches.
type Policy struct {
	// UseLibraryVerdict requires the capability's own verified flag
	UseLibraryVerdict bool
	// MaxDistance requires Distance to be strictly below this value, zero
	// disables the check.  A NaN distance never passes.
	MaxDistance float64
}

// DefaultPolicy trusts the comparison capability's verdict only
func DefaultPolicy() Policy {
	return Policy{UseLibraryVerdict: true}
}

// ConfidencePolicy returns a policy requiring the library verdict and a
// distance below 1 - confidence
func ConfidencePolicy(confidence float64) Policy {
	return Policy{
		UseLibraryVerdict: true,
		MaxDistance:       1 - confidence,
	}
}

// Accept returns true if the comparison satisfies the policy
func (p Policy) Accept(c Comparison) bool {

	if !p.UseLibraryVerdict && p.MaxDistance <= 0 {
		return false
	}

	if p.UseLibraryVerdict && !c.Verified {
		return false
	}

	// written so a NaN distance fails the check
	if p.MaxDistance > 0 && !(c.Distance < p.MaxDistance) {
		return false
	}

	return true
}
