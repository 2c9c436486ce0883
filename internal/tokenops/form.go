package tokenops

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of one form.
//
//	idle -> verifying -> verified -> submitting -> done | error
//
// Forms without a verify step go straight from idle to submitting.
type State string

const (
	StateIdle       State = "idle"
	StateVerifying  State = "verifying"
	StateVerified   State = "verified"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateError      State = "error"
)

// form serializes calls of one page. T is the verification result it holds.
type form[T any] struct {
	name           string
	requiresVerify bool

	mu         sync.Mutex
	state      State
	verified   *T
	verifiedBy string // wallet that performed the verification
}

func newForm[T any](name string, requiresVerify bool) *form[T] {
	return &form[T]{name: name, requiresVerify: requiresVerify, state: StateIdle}
}

// busy must be called with mu held.
func (f *form[T]) busy() error {
	if f.state == StateVerifying || f.state == StateSubmitting {
		return fmt.Errorf("%w: %s form is %s", ErrBusy, f.name, f.state)
	}
	return nil
}

// beginVerify drops any previous verification result.
func (f *form[T]) beginVerify() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.busy(); err != nil {
		return err
	}
	f.state = StateVerifying
	f.verified = nil
	f.verifiedBy = ""
	return nil
}

func (f *form[T]) endVerify(walletKey string, result *T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil || result == nil {
		f.state = StateError
		return
	}
	f.state = StateVerified
	f.verified = result
	f.verifiedBy = walletKey
}

// beginSubmit returns a copy of the held verification result. A result
// verified by a different wallet does not count.
func (f *form[T]) beginSubmit(walletKey string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.busy(); err != nil {
		return nil, err
	}
	if f.requiresVerify && (f.verified == nil || f.verifiedBy != walletKey) {
		return nil, fmt.Errorf("%w: verify the %s form first", ErrNotVerified, f.name)
	}
	f.state = StateSubmitting
	if f.verified == nil {
		return nil, nil
	}
	cp := *f.verified
	return &cp, nil
}

// endSubmit keeps the verification result on failure so the user can
// resubmit. dropVerification drops it after success.
func (f *form[T]) endSubmit(err error, dropVerification bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateError
		return
	}
	f.state = StateDone
	if dropVerification {
		f.verified = nil
		f.verifiedBy = ""
	}
}

// reset returns the form to idle unless a call is in flight.
func (f *form[T]) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy() != nil {
		return
	}
	f.state = StateIdle
	f.verified = nil
	f.verifiedBy = ""
}

// FormStatus is a point-in-time view of one form.
type FormStatus[T any] struct {
	State    State `json:"state"`
	Verified *T    `json:"verified,omitempty"`
}

func (f *form[T]) status() FormStatus[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FormStatus[T]{State: f.state}
	if f.verified != nil {
		cp := *f.verified
		st.Verified = &cp
	}
	return st
}
