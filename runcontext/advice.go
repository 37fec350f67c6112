package runcontext

import (
	"math/big"
	"strings"
)

// Advice is the non-blocking verdict on whether the triggering push looks
// deployable
type Advice struct {
	Deployable bool
	Message    string
}

// Advise compares the before/after commit references of the triggering push.
// Hashes are compared numerically, which is only a heuristic; the result is
// informational and never blocks a deployment.
func Advise(rc RunContext) Advice {
	if rc.Before == "" && rc.After == "" {
		return Advice{Deployable: true, Message: "Event has no before/after references. Deploy should be ok..."}
	}
	if !strictlyEarlier(rc.Before, rc.After) || isInitial(rc.After) {
		return Advice{Message: "This commit is the same or before the one that triggered it. May not want to deploy?"}
	}
	return Advice{Deployable: true, Message: "This commit is after the one that triggered it. Deploy should be ok..."}
}

// strictlyEarlier reports whether before < after. An initial before reference
// (new branch) never counts as earlier.
func strictlyEarlier(before, after string) bool {
	if isInitial(before) {
		return false
	}
	b, okB := new(big.Int).SetString(strings.ToLower(before), 16)
	a, okA := new(big.Int).SetString(strings.ToLower(after), 16)
	if !okB || !okA {
		return true
	}
	return b.Cmp(a) < 0
}

func isInitial(ref string) bool {
	return strings.Trim(ref, "0") == ""
}
