package modem

import "errors"

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when the Dialer produced no Transport.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrNoPortName is returned by SerialDialer when no port is configured.
	ErrNoPortName = errors.New("modem: serial port name is required")

	// ErrNoData is returned by Transport.ReadByte when nothing is buffered.
	ErrNoData = errors.New("no data buffered")

	// ErrModemUnresponsive is returned by Startup when a bounded number of
	// attempts was configured and the modem never answered the probe.
	//
	// With the default configuration Startup retries forever and this error
	// is never produced.
	ErrModemUnresponsive = errors.New("modem did not answer")

	// ErrNotRegistered is returned in strict mode when the modem never
	// reported a network registration.
	ErrNotRegistered = errors.New("modem not registered on network")

	// ErrStepFailed is returned in strict mode when a configuration step of a
	// fixed command sequence did not produce the expected reply.
	ErrStepFailed = errors.New("command step failed")

	// ErrNoPrompt is returned when the modem did not print the input prompt
	// (">" for SMS, "DOWNLOAD" for HTTP uploads). No payload was written.
	ErrNoPrompt = errors.New("no input prompt from modem")

	// ErrHTTPActionFailed is returned when AT+HTTPACTION did not report
	// status 200 within its window.
	ErrHTTPActionFailed = errors.New("HTTP action failed")

	// ErrNoFix is returned by PollGPS when no position fix was observed.
	ErrNoFix = errors.New("GPS positioning failed")

	// ErrCallFailed is returned when the dial command was not accepted.
	ErrCallFailed = errors.New("call not established")
)
