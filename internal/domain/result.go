package domain

import "errors"

// Result is the outcome of a mutating workflow operation. Expected domain
// failures are reported here instead of as Go errors so callers can branch
// on Success and follow RedirectTo.
type Result struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	RedirectTo string      `json:"redirectTo,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Err        error       `json:"-"`
}

func OK(message string) Result {
	return Result{Success: true, Message: message}
}

func Fail(err error) Result {
	return Result{Success: false, Message: err.Error(), Err: err}
}

func FailRedirect(err error, redirectTo string) Result {
	res := Fail(err)
	res.RedirectTo = redirectTo
	return res
}

// Is reports whether the result failed with target.
func (r Result) Is(target error) bool {
	return r.Err != nil && errors.Is(r.Err, target)
}
