package deviceapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates a non-2xx response
	ErrTypeHTTP
	// ErrTypeParse indicates a response body that could not be decoded
	ErrTypeParse
	// ErrTypeValidation indicates a request rejected before it was sent
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeCanceled indicates the caller's context ended the request
	ErrTypeCanceled
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred during device communication
type DeviceError struct {
	Type           ErrorType
	Message        string
	StatusCode     int
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Endpoint       string
	Retryable      bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed DeviceError
func ClassifyNetworkError(err error, endpoint string) *DeviceError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &DeviceError{
			Type:     ErrTypeCanceled,
			Message:  "Request canceled",
			Err:      err,
			Endpoint: endpoint,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Endpoint:       endpoint,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Endpoint:       endpoint,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Endpoint:       endpoint,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Endpoint:       endpoint,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Endpoint:       endpoint,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return ClassifyNetworkError(urlErr.Err, endpoint)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Endpoint:       endpoint,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, endpoint string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, endpoint)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Endpoint: endpoint, Retryable: true}
	}
	if classified.Type == ErrTypeNetwork && classified.NetworkSubtype == NetworkErrorGeneral {
		classified.Message = message
	}
	return classified
}

// NewHTTPError creates an error for a non-2xx response
func NewHTTPError(statusCode int, endpoint string, body string) *DeviceError {
	msg := fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode))
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    msg,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, endpoint string, err error) *DeviceError {
	return &DeviceError{
		Type:     ErrTypeParse,
		Message:  message,
		Err:      err,
		Endpoint: endpoint,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a transport failure of any kind
func IsNetworkError(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		switch devErr.Type {
		case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
			return true
		}
	}
	return false
}

// IsHTTPError checks if an error is a non-2xx response
func IsHTTPError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeParse
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeValidation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Retryable
}

// StatusCode returns the HTTP status of err, or 0.
func StatusCode(err error) int {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.StatusCode
	}
	return 0
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The controller did not respond in time.",
			"Troubleshooting:",
			"  • Check that the controller is powered on",
			"  • Check the Wi-Fi signal strength shown on the status panel",
			"  • Try a longer --timeout",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The controller refused the connection.",
			"Troubleshooting:",
			"  • The web server may still be starting after a reboot; wait a few seconds",
			"  • Verify the port in --host (default is 80)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the controller hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of the hostname",
			"  • Run 'dmxsync scan' to find controllers on the network",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The controller is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the controller IP address is correct",
				"  • If static IP is configured, check the mask and gateway",
				"  • Connect to the controller's access point and use 192.168.4.1")
		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the controller's network.",
				"Troubleshooting:",
				"  • Connect to the same network as the controller",
				"  • Check your network adapter settings")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the controller is powered on")
		}
		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if devErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The controller returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Try again; the controller may be busy applying a previous change",
				"  • Reboot the controller with 'dmxsync reboot'",
			}, "\n")
		}
		return fmt.Sprintf("The controller returned HTTP error %d. Check the submitted values.", devErr.StatusCode)

	case ErrTypeParse:
		return strings.Join([]string{
			"Failed to parse the controller's response.",
			"This may indicate a firmware incompatibility.",
		}, "\n")

	case ErrTypeValidation:
		return "The values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check Wi-Fi connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("HTTP error! status: %d", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse device response"
	case ErrTypeCanceled:
		return "Request canceled"
	default:
		return devErr.Message
	}
}
