// Package domain holds the form and response model and the validation rules
// that decide whether a form definition, or a response to it, may be stored.
//
// Every Validate function is pure and returns the first failure it finds as a
// *ValidationError; callers must not assume that other problems were checked.
package domain
