package gaerr

import (
	"errors"
	"strings"
	"testing"
)

func TestCategoryPredicates(t *testing.T) {
	cases := []struct {
		code             Code
		isMis, isSys, isFmt bool
	}{
		{Ok, false, false, false},
		{Generic, false, false, false},
		{MisParam, true, false, false},
		{MisUnsup, true, false, false},
		{SysIO, false, true, false},
		{SysMem, false, true, false},
		{SysLib, false, true, false},
		{SysRun, false, true, false},
		{Format, false, false, true},
	}
	for _, c := range cases {
		if got := IsMis(c.code); got != c.isMis {
			t.Errorf("IsMis(%v) = %v, want %v", c.code, got, c.isMis)
		}
		if got := IsSys(c.code); got != c.isSys {
			t.Errorf("IsSys(%v) = %v, want %v", c.code, got, c.isSys)
		}
		if got := IsFormat(c.code); got != c.isFmt {
			t.Errorf("IsFormat(%v) = %v, want %v", c.code, got, c.isFmt)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(SysIO, cause, "reading %s", "file.wav")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("errors.As(err, &*Error) = false, want true")
	}
	if ge.Code != SysIO {
		t.Errorf("Code = %v, want %v", ge.Code, SysIO)
	}
}

func TestIsComparesByCode(t *testing.T) {
	a := New(MisParam, "bad value")
	b := New(MisParam, "a different message")
	c := New(MisUnsup, "unsupported")

	if !errors.Is(a, b) {
		t.Errorf("errors between two MisParam errors should compare equal by code")
	}
	if errors.Is(a, c) {
		t.Errorf("errors with different codes should not compare equal")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(SysIO, cause, "writing output")
	msg := err.Error()
	if !strings.Contains(msg, cause.Error()) {
		t.Fatalf("Error() = %q, want it to include the cause %q", msg, cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}
