package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"jetstore/internal/models"

	"github.com/lib/pq"
)

var (
	// ErrStoreUnavailable is returned by mutations when the pool was never opened.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInsufficientFunds is the expected "no" of Debit, not a fault.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransientStore marks timeouts and connectivity faults. The statement either
	// committed or did not, so the caller may retry with the same arguments.
	ErrTransientStore = errors.New("transient store error")
	ErrCorruptRecord  = errors.New("corrupt record")

	ErrInvalidAmount = models.ErrInvalidAmount
	ErrInvalidChain  = models.ErrInvalidChain
)

const pqCheckViolation = "23514"

// classify wraps a driver error with ErrTransientStore when retrying can help.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "08"): // connection exception
			return true
		case strings.HasPrefix(code, "53"): // insufficient resources
			return true
		case strings.HasPrefix(code, "57P0"): // admin/crash shutdown, cannot connect now
			return true
		case code == "57014": // query canceled by statement_timeout
			return true
		case code == "40001" || code == "40P01":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqCheckViolation
}
