package entitlements

import "fmt"

// LimitError is returned by write operations refused by an entitlement check.
type LimitError struct {
	Resource string
	Check    LimitCheck
}

func (e *LimitError) Error() string {
	if e.Check.Reason == ReasonNoSubscription {
		return ReasonNoSubscription
	}
	return fmt.Sprintf("%s limit reached. Current: %d, Limit: %d", e.Resource, e.Check.Current, e.Check.Limit)
}

func NewLimitError(resource string, check *LimitCheck) *LimitError {
	e := &LimitError{Resource: resource}
	if check != nil {
		e.Check = *check
	}
	return e
}
