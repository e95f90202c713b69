package dberr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the service reacts to.
const (
	CodeUndefinedColumn      = "42703"
	CodeUndefinedTable       = "42P01"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeQueryCanceled        = "57014"
	CodeInvalidAuthorization = "28000"
	CodeInvalidPassword      = "28P01"
	CodeInvalidCatalogName   = "3D000"
)

// Code returns the SQLSTATE carried by err, for either supported driver.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func IsUndefinedColumn(err error) bool {
	return Code(err) == CodeUndefinedColumn
}

func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || Code(err) == CodeQueryCanceled {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func IsConflict(err error) bool {
	code := Code(err)
	return code == CodeDeadlockDetected || code == CodeSerializationFailure
}

type Kind string

const (
	KindDNS               Kind = "DNS_ERROR"
	KindConnectionRefused Kind = "CONNECTION_REFUSED"
	KindLoginFailed       Kind = "LOGIN_FAILED"
	KindTLS               Kind = "TLS_ERROR"
	KindDatabaseNotFound  Kind = "DATABASE_NOT_FOUND"
	KindUnknown           Kind = "UNKNOWN_ERROR"
)

type Target struct {
	Host     string
	Port     int
	Database string
}

func (t Target) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

type Classification struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
	Code    string `json:"code,omitempty"`
}

// Classify turns a connection-level error into an operator-facing description.
// The message never includes credentials.
func Classify(err error, target Target) Classification {
	code := Code(err)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || strings.Contains(lower, "no such host") {
		return Classification{
			Type:    KindDNS,
			Message: fmt.Sprintf("invalid or unknown host: %s", target.Host),
			Hint:    fmt.Sprintf("check LEGACY_DB_HOST; try nslookup %s", target.Host),
			Code:    code,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || IsTimeout(err) ||
		strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout") {
		return Classification{
			Type:    KindConnectionRefused,
			Message: fmt.Sprintf("connection refused or timed out at %s", target.Addr()),
			Hint:    fmt.Sprintf("port blocked or server not listening; try nc -vz %s %d", target.Host, target.Port),
			Code:    code,
		}
	}

	if code == CodeInvalidPassword || code == CodeInvalidAuthorization ||
		strings.Contains(lower, "authentication failed") {
		return Classification{
			Type:    KindLoginFailed,
			Message: "invalid credentials or missing permission",
			Hint:    fmt.Sprintf("check LEGACY_DB_USER and LEGACY_DB_PASSWORD and access to database %q", target.Database),
			Code:    code,
		}
	}

	if strings.Contains(lower, "certificate") || strings.Contains(lower, "tls") || strings.Contains(lower, "ssl") {
		return Classification{
			Type:    KindTLS,
			Message: "TLS negotiation failed",
			Hint:    "check LEGACY_DB_SSLMODE against the server TLS configuration",
			Code:    code,
		}
	}

	if code == CodeInvalidCatalogName {
		return Classification{
			Type:    KindDatabaseNotFound,
			Message: fmt.Sprintf("database %q not found", target.Database),
			Hint:    "check LEGACY_DB_NAME",
			Code:    code,
		}
	}

	return Classification{
		Type:    KindUnknown,
		Message: msg,
		Hint:    "check LEGACY_DB_HOST, LEGACY_DB_PORT, LEGACY_DB_USER, LEGACY_DB_PASSWORD, LEGACY_DB_NAME, LEGACY_DB_SSLMODE",
		Code:    code,
	}
}
