// Package assert provides lightweight invariant checks for internal
// consistency conditions that should never fail given a correct caller.
package assert

import "fmt"

// True panics if stmt does not resolve to true.
func True(stmt bool, msg string, args ...any) {
	if !stmt {
		panic(fmt.Sprintf(msg, args...))
	}
}

// False panics if stmt does not resolve to false.
func False(stmt bool, msg string, args ...any) {
	if stmt {
		panic(fmt.Sprintf(msg, args...))
	}
}

// NotNil panics if obj is nil.
func NotNil(obj any, msg string, args ...any) {
	if obj == nil {
		panic(fmt.Sprintf(msg, args...))
	}
}
