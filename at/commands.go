package at

import (
	"fmt"
	"time"
)

// Basic control
const (
	Probe    = "AT"
	EchoOn   = "ATE1"
	EchoOff  = "ATE0"
	TextMode = "AT+CMGF=1"
)

// Network registration and GPRS
const (
	RegistrationStatus = "AT+CGREG?"
	SimStatus          = "AT+CPIN?"
	SignalQuality      = "AT+CSQ"
	Operator           = "AT+COPS?"
	GPRSAttached       = "AT+CGATT?"
	PDPContext         = "AT+CGDCONT?"
	TaskAPN            = "AT+CSTT?"
	BringUpWireless    = "AT+CIICR"
	LocalIP            = "AT+CIFSR"
)

// GNSS
const (
	GNSSPowerOn  = "AT+CGNSPWR=1"
	GNSSPowerOff = "AT+CGNSPWR=0"
	GNSSInfo     = "AT+CGNSINF"
)

// HTTP application
const (
	HTTPInit      = "AT+HTTPINIT"
	HTTPTerm      = "AT+HTTPTERM"
	HTTPBearerCID = `AT+HTTPPARA="CID",1`
	HTTPGetAction = "AT+HTTPACTION=0"
	HTTPPostAct   = "AT+HTTPACTION=1"
	HTTPRead      = "AT+HTTPREAD"
)

// Bearer profile 1
const (
	BearerGPRS  = `AT+SAPBR=3,1,"Contype","GPRS"`
	BearerOpen  = "AT+SAPBR=1,1"
	BearerQuery = "AT+SAPBR=2,1"
)

// Voice
const (
	AudioHandsfree = "AT+CHFA=1"
	HangUp         = "AT+CHUP"
)

// Bluetooth
const (
	BTPowerOn  = "AT+BTPOWER=1"
	BTPowerOff = "AT+BTPOWER=0"
	BTHost     = "AT+BTHOST?"
	BTStatus   = "AT+BTSTATUS?"
)

// SetTaskAPN sets the APN used by AT+CIICR.
func SetTaskAPN(apn string) string {
	return fmt.Sprintf(`AT+CSTT="%s"`, apn)
}

// BearerAPN sets the APN of bearer profile 1.
func BearerAPN(apn string) string {
	return fmt.Sprintf(`AT+SAPBR=3,1,"APN","%s"`, apn)
}

// HTTPURL sets the target URL of the HTTP context.
func HTTPURL(url string) string {
	return fmt.Sprintf(`AT+HTTPPARA="URL","%s"`, url)
}

// HTTPContent sets the Content-Type header of the HTTP context.
func HTTPContent(contentType string) string {
	return fmt.Sprintf(`AT+HTTPPARA="CONTENT","%s"`, contentType)
}

// HTTPData announces an upload of size bytes; the modem waits up to
// latency for the payload after printing DOWNLOAD.
func HTTPData(size int, latency time.Duration) string {
	return fmt.Sprintf("AT+HTTPDATA=%d,%d", size, latency.Milliseconds())
}

// SendSMS starts a text-mode message to number.
func SendSMS(number string) string {
	return fmt.Sprintf(`AT+CMGS="%s"`, number)
}

// Dial places a voice call to number.
func Dial(number string) string {
	return fmt.Sprintf("ATD%s;", number)
}

// BTScan scans for Bluetooth devices for the given number of seconds.
func BTScan(seconds int) string {
	return fmt.Sprintf("AT+BTSCAN=1,%d", seconds)
}
