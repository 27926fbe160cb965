package sigaa

import "errors"

var (
	// ErrConnection wraps every transport level failure (dns, connect, timeout, protocol).
	ErrConnection = errors.New("sigaa: connection error")
	// ErrSessionExpired means the portal redirected to its expiration page, the caller
	// has to login again.
	ErrSessionExpired = errors.New("sigaa: session expired")
	// ErrSessionClosed is returned for any request issued after Close or after a request
	// was cancelled midway.
	ErrSessionClosed = errors.New("sigaa: session closed")
	// ErrInvalidCredentials is returned when the portal rejected the username/password.
	ErrInvalidCredentials = errors.New("sigaa: invalid credentials")
	// ErrLoginFailed is returned when the portal bounced back to the login screen without
	// saying why.
	ErrLoginFailed = errors.New("sigaa: login failed")
	// ErrMalformedForm means a form the engine needs to submit is missing or lacks a
	// required attribute.
	ErrMalformedForm = errors.New("sigaa: malformed form")
	// ErrNavigationNotFound means an expected menu entry is absent.
	ErrNavigationNotFound = errors.New("sigaa: navigation entry not found")
	// ErrUnexpectedPage covers markup the engine does not know how to read.
	ErrUnexpectedPage = errors.New("sigaa: unexpected page")
)
