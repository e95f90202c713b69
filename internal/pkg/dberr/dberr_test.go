package dberr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/yuzvak/pdv-service/internal/pkg/clock"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

var target = Target{Host: "db.local", Port: 5432, Database: "pdv"}

func TestCode_BothDrivers(t *testing.T) {
	pqErr := pkgerrors.Wrap(&pq.Error{Code: CodeUndefinedColumn}, "insert pedidos")
	pgErr := fmt.Errorf("exec: %w", &pgconn.PgError{Code: CodeDeadlockDetected})

	assert.Equal(t, CodeUndefinedColumn, Code(pqErr))
	assert.True(t, IsUndefinedColumn(pqErr))
	assert.Equal(t, CodeDeadlockDetected, Code(pgErr))
	assert.True(t, IsConflict(pgErr))
	assert.Equal(t, "", Code(errors.New("plain")))
	assert.Equal(t, "", Code(nil))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(&pq.Error{Code: CodeQueryCanceled}))
	assert.False(t, IsTimeout(errors.New("other")))
	assert.False(t, IsTimeout(nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "db.local"}, KindDNS},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, KindConnectionRefused},
		{"login", &pq.Error{Code: CodeInvalidPassword, Message: "password authentication failed"}, KindLoginFailed},
		{"tls", errors.New("pq: SSL is not enabled on the server"), KindTLS},
		{"database", &pgconn.PgError{Code: CodeInvalidCatalogName}, KindDatabaseNotFound},
		{"unknown", errors.New("something odd"), KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.err, target)
			assert.Equal(t, tc.want, c.Type)
			assert.NotEmpty(t, c.Hint)
		})
	}
}

func TestReporter_Cooldown(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewReporter(logger.Nop(), clk, target, DefaultCooldown)
	err := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}

	_, logged := r.Report(err, "ping")
	assert.True(t, logged)

	clk.Advance(2 * time.Second)
	c, logged := r.Report(err, "ping")
	assert.False(t, logged)
	assert.Equal(t, KindConnectionRefused, c.Type)

	_, logged = r.Report(errors.New("different class"), "ping")
	assert.True(t, logged)

	clk.Advance(4 * time.Second)
	_, logged = r.Report(err, "ping")
	assert.True(t, logged)
}
