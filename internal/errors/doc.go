// Package errors provides coded, actionable error messages for the
// screenobserver command line.
//
// Each error has a unique code (e.g., "E120") that maps to a short message,
// a detailed explanation and a category. Callers add detail and a fix hint:
//
//	err := errors.New("E141").
//	    WithDetail("No screenobserver.json found in /srv/app").
//	    WithSuggestion("Run 'screenobserver init' to create one")
//
//	errors.PrintError(err)
//	// Output:
//	// ERROR E141: Config file not found
//	//
//	//   No screenobserver.json found in /srv/app
//	//
//	//   Hint: Run 'screenobserver init' to create one
package errors
