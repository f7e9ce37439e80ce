package cadeskit

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// Error codes raised by this package and the plugin client.
const (
	CodeDeasync              = "CBP-0"
	CodeNotInitialized       = "CBP-1"
	CodeLoadFailed           = "CBP-2"
	CodeUnsupportedPlugin    = "CBP-3"
	CodeUnsupportedCSP       = "CBP-4"
	CodeCertificateParse     = "CBP-5"
	CodeCertificateInvalid   = "CBP-6"
	CodeMissingArgument      = "CBP-7"
	CodeNoProvider           = "CBP-8"
	CodeUnknownXMLAlgorithm  = "CBP-9"
	CodeReadersNeedCryptoPro = "CBP-12"
	CodeContainersNeedCrypto = "CBP-13"
)

// maxCodeLength bounds codes extracted from host messages. Longer candidates
// are dropped, never truncated.
const maxCodeLength = 16

// Category separates errors created by this module from errors surfaced by
// the host plugin.
type Category string

const (
	// CategoryError marks errors created from a known code.
	CategoryError Category = "Error"
	// CategoryHost marks errors raised by the host plugin.
	CategoryHost Category = "CAdES"
)

// Error is the domain error returned by every operation of the module.
type Error struct {
	// Code is a short stable identifier, e.g. "CBP-7" or "0x8010006E".
	Code string
	// Title describes the failing step. Not meant for end users.
	Title string
	// Message is the user-facing text.
	Message string
	// Category is CategoryError or CategoryHost.
	Category Category
	// Cause is the original error, if any.
	Cause error
}

// Error renders "code: message", omitting an empty code.
func (e *Error) Error() string {
	switch {
	case e.Code == "":
		return e.Message
	case e.Message == "":
		return e.Code
	default:
		return e.Code + ": " + e.Message
	}
}

// Unwrap returns the original error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HostFault is implemented by errors raised by a host implementation. It
// exposes the code the host attached to the error (empty when none) and the
// extended diagnostic the host reports for it (empty when unavailable).
type HostFault interface {
	error
	HostCode() string
	Diagnostic() string
}

// NewError creates an Error from a known code. The message comes from
// PluginErrors unless an override is given.
func NewError(code, title string, cause error, override ...string) *Error {
	e := &Error{
		Code:     code,
		Title:    title,
		Message:  PluginErrors[code],
		Category: CategoryError,
		Cause:    cause,
	}
	if len(override) > 0 && override[0] != "" {
		e.Message = override[0]
	}
	notify(e)
	return e
}

// Missing is shorthand for a CBP-7 error whose title doubles as the message.
func Missing(message string) *Error {
	return NewError(CodeMissingArgument, message, nil, message)
}

var (
	hexCodePattern     = regexp.MustCompile(`\(?0x.{2,8}\)?`)
	leadingTextPattern = regexp.MustCompile(`^(.*?)(?:(?:\.?\s?\(?0x)|(?:\.?$))`)
)

// FromHostError converts an error raised by the host plugin into an Error.
// The code is taken from the host when it supplied one, then from
// ErrorsWithoutCode, then from the message text.
func FromHostError(err error, title string) *Error {
	if err == nil {
		err = errors.New("")
	}
	raw := err.Error()

	var code, diagnostic string
	var fault HostFault
	if errors.As(err, &fault) {
		code = fault.HostCode()
		diagnostic = fault.Diagnostic()
		raw = fault.Error()
	}
	var domain *Error
	if code == "" && errors.As(err, &domain) {
		code = domain.Code
		raw = domain.Message
	}
	if c, ok := ErrorsWithoutCode[raw]; ok {
		code = c
	}
	if code == "" {
		code = ExtractCode(raw)
	}
	if len(code) > maxCodeLength {
		code = ""
	}

	extracted := diagnostic
	if extracted == "" {
		extracted = raw
	}
	if code != "" {
		extracted = strings.ReplaceAll(extracted, "("+code+")", "")
	}
	extracted = strings.TrimSpace(extracted)

	e := &Error{
		Code:     code,
		Title:    title,
		Category: CategoryHost,
		Cause:    err,
	}
	switch {
	case CryptoProErrors[code] != "":
		e.Message = CryptoProErrors[code]
	case PluginErrors[code] != "":
		e.Message = PluginErrors[code]
	case extracted != "":
		e.Message = extracted
	default:
		e.Message = raw
	}
	if e.Title == "" {
		e.Title = e.Message
	}
	notify(e)
	return e
}

// ExtractCode pulls a short code out of a host error message. A
// parenthesised or bare 0x token wins; otherwise the leading text up to the
// first "0x" or the end of the message is used.
func ExtractCode(message string) string {
	match := hexCodePattern.FindString(message)
	if match == "" {
		match = leadingTextPattern.FindString(message)
	}
	match = strings.NewReplacer("(", "", ")", "").Replace(match)
	return strings.TrimSpace(match)
}

// IsCode reports whether err is an Error carrying code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ErrorListener observes every Error at construction time.
type ErrorListener func(*Error)

type listenerEntry struct {
	fn ErrorListener
}

var (
	listenersMu sync.RWMutex
	listeners   []*listenerEntry
	debugChains atomic.Bool
)

// AddErrorListener registers fn. The most recently added listener is called
// first. The returned function removes the listener.
func AddErrorListener(fn ErrorListener) (remove func()) {
	entry := &listenerEntry{fn: fn}
	listenersMu.Lock()
	listeners = append([]*listenerEntry{entry}, listeners...)
	listenersMu.Unlock()
	return func() {
		listenersMu.Lock()
		defer listenersMu.Unlock()
		for i, l := range listeners {
			if l == entry {
				listeners = append(listeners[:i:i], listeners[i+1:]...)
				return
			}
		}
	}
}

func notify(e *Error) {
	listenersMu.RLock()
	snapshot := make([]*listenerEntry, len(listeners))
	copy(snapshot, listeners)
	listenersMu.RUnlock()
	for _, l := range snapshot {
		l.fn(e)
	}
}

// SetDebug toggles the built-in listener that logs the cause chain of every
// Error at debug level.
func SetDebug(on bool) {
	debugChains.Store(on)
}

func logErrorChain(e *Error) {
	if !debugChains.Load() {
		return
	}
	var chain []string
	for err := error(e); err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	slog.Debug("cadeskit error", "code", e.Code, "title", e.Title, "chain", chain)
}

func init() {
	AddErrorListener(logErrorChain)
}
