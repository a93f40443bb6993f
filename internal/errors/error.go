package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryResolve Category = "resolve"
	CategoryCompile Category = "compile"
	CategoryConfig  Category = "config"
	CategoryIO      Category = "io"
	CategoryCLI     Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// IslandsError is a structured error with a code, source location and hints.
type IslandsError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (resolve, compile, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source location where the error occurred.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// ContextStart is the line number of Context[0].
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *IslandsError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *IslandsError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds source location to the error and loads a few lines of
// context around it.
func (e *IslandsError) WithLocation(file string, line, column int) *IslandsError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *IslandsError) WithSuggestion(s string) *IslandsError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *IslandsError) WithDetail(d string) *IslandsError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *IslandsError) Wrap(err error) *IslandsError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) ([]string, int) {
	if targetLine <= 0 {
		return nil, 0
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines, startLine
}

// New creates an IslandsError from a registered error code.
func New(code string) *IslandsError {
	template, ok := registry[code]
	if !ok {
		return &IslandsError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &IslandsError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new IslandsError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *IslandsError {
	return &IslandsError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an IslandsError, returning err
// unchanged if it already is one.
func FromError(err error, code string) *IslandsError {
	if err == nil {
		return nil
	}
	var ie *IslandsError
	if stderrors.As(err, &ie) {
		return ie
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err or any error it wraps is an IslandsError with
// the given code. Joined errors are searched too.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if ie, ok := err.(*IslandsError); ok && ie.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}
