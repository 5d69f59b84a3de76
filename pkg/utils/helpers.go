// Package utils provides utility functions and constants for common operations
// throughout the application.
package utils

import (
	"regexp"
	"strings"
)

// AreAddressesEqual compares two Ethereum addresses for equality, ignoring case.
//
// Parameters:
//   - a: First Ethereum address
//   - b: Second Ethereum address
//
// Returns:
//   - bool: True if the addresses are equal (case-insensitive), false otherwise
func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// SnakeCase converts a string to snake_case by replacing hyphens, dots and other
// separator characters with underscores.
//
// Parameters:
//   - s: String to convert
//
// Returns:
//   - string: The input string converted to snake_case
func SnakeCase(s string) string {
	notSnake := regexp.MustCompile(`[_.\-]`)
	return notSnake.ReplaceAllString(s, "_")
}

// Map applies f to every element of s and returns the results in order.
func Map[A any, B any](s []A, f func(A, uint64) B) []B {
	out := make([]B, 0, len(s))
	for i, v := range s {
		out = append(out, f(v, uint64(i)))
	}
	return out
}

// Filter returns the elements of s for which f returns true, preserving order.
func Filter[A any](s []A, f func(A) bool) []A {
	out := make([]A, 0)
	for _, v := range s {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}
