package at

import "time"

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = ">"
	CtrlZ  = "\x1a"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// Expected substrings for procedure steps
	Registered = "0,1"      // +CGREG: 0,1 (registered, home network)
	Download   = "DOWNLOAD" // AT+HTTPDATA upload prompt
	HTTPOK     = "200"      // status inside +HTTPACTION: <method>,200,<len>
	NoFix      = ",,,,"     // empty fields in +CGNSINF while GNSS has no fix

	// URCs (Unsolicited Result Codes)
	UrcNewMsg = "+CMTI:"
	UrcCall   = "RING"
)

// DefaultTimeout is the collection window used when a Command does not
// carry its own timeout.
const DefaultTimeout = 2000 * time.Millisecond

// Command is a single AT command line together with the substring that
// marks a successful reply and the collection window. A zero Timeout means
// the engine default.
type Command struct {
	Text    string
	Expect  string
	Timeout time.Duration
}

// Cmd returns a Command expecting OK with the default timeout.
func Cmd(text string) Command {
	return Command{Text: text, Expect: OK}
}

// Expecting returns a copy of c that expects substr instead.
func (c Command) Expecting(substr string) Command {
	c.Expect = substr
	return c
}

// Within returns a copy of c with the given collection window.
func (c Command) Within(d time.Duration) Command {
	c.Timeout = d
	return c
}

// Wire returns the bytes written to the modem for c.
func (c Command) Wire() []byte {
	return []byte(c.Text + CRLF)
}

func (c Command) String() string {
	return c.Text
}

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // SMS input prompt
)
