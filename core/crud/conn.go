// Package crud is the data-access core: it owns one connection to a backing
// store and mediates every create, read, update and delete on the users
// collection through it.
//
// Every failure comes back as a *ConnectError or *OpError; nothing in this
// package exits the process.
package crud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

const (
	opCreate  = "create"
	opReadAll = "readAll"
	opGet     = "get"
	opUpdate  = "update"
	opDelete  = "delete"
)

// Conn is an exclusively owned connection to a store. It is not safe for
// concurrent use; open one Conn per goroutine instead.
type Conn struct {
	backend string
	b       Backend
}

// Connect opens the backend named by cfg.Backend.
func Connect(ctx context.Context, cfg config.ConnectionConfig) (*Conn, error) {
	open, err := lookup(cfg.Backend)
	if err != nil {
		return nil, classifyConnect(cfg.Backend, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConnectError{Kind: ProtocolMismatch, Backend: cfg.Backend, Err: err}
	}

	logger.Debug("Connecting: %s", cfg)
	start := time.Now()

	b, err := open(ctx, cfg)
	if err != nil {
		logger.Debug("Connection to %s backend failed after %v: %v", cfg.Backend, time.Since(start), err)
		return nil, classifyConnect(cfg.Backend, err)
	}

	logger.Debug("Connected to %s backend in %v", cfg.Backend, time.Since(start))
	return &Conn{backend: cfg.Backend, b: b}, nil
}

// WithConn connects, runs fn and closes the connection on every path. An error
// from fn takes precedence over an error from Close.
func WithConn(ctx context.Context, cfg config.ConnectionConfig, fn func(*Conn) error) (err error) {
	conn, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(conn)
}

// Backend returns the name of the backend this Conn was opened with.
func (c *Conn) Backend() string {
	return c.backend
}

// Create inserts a new user and returns it with its store-assigned ID.
func (c *Conn) Create(ctx context.Context, name string, age int) (model.User, error) {
	if strings.TrimSpace(name) == "" {
		return model.User{}, &OpError{Kind: KindValidation, Op: opCreate, Err: fmt.Errorf("name cannot be empty")}
	}
	if err := c.check(opCreate); err != nil {
		return model.User{}, err
	}

	start := time.Now()
	u, err := c.b.Create(ctx, name, age)
	if err != nil {
		return model.User{}, c.fail(opCreate, err)
	}
	logger.Debug("Created user %d in %v", u.ID, time.Since(start))
	return u, nil
}

// ReadAll returns a snapshot of every user in the order the store yields
// them. No particular order is guaranteed.
func (c *Conn) ReadAll(ctx context.Context) ([]model.User, error) {
	if err := c.check(opReadAll); err != nil {
		return nil, err
	}

	start := time.Now()
	users, err := c.b.ReadAll(ctx)
	if err != nil {
		return nil, c.fail(opReadAll, err)
	}
	logger.Debug("Read %d users in %v", len(users), time.Since(start))
	return users, nil
}

// Get returns the user with the given ID.
func (c *Conn) Get(ctx context.Context, id int64) (model.User, error) {
	if err := c.check(opGet); err != nil {
		return model.User{}, err
	}

	u, err := c.b.Get(ctx, id)
	if err != nil {
		return model.User{}, c.fail(opGet, err)
	}
	return u, nil
}

// Update replaces the age of user id and returns the updated user.
func (c *Conn) Update(ctx context.Context, id int64, newAge int) (model.User, error) {
	if err := c.check(opUpdate); err != nil {
		return model.User{}, err
	}

	start := time.Now()
	u, err := c.b.Update(ctx, id, newAge)
	if err != nil {
		return model.User{}, c.fail(opUpdate, err)
	}
	logger.Debug("Updated user %d in %v", id, time.Since(start))
	return u, nil
}

// Delete removes user id permanently.
func (c *Conn) Delete(ctx context.Context, id int64) error {
	if err := c.check(opDelete); err != nil {
		return err
	}

	start := time.Now()
	if err := c.b.Delete(ctx, id); err != nil {
		return c.fail(opDelete, err)
	}
	logger.Debug("Deleted user %d in %v", id, time.Since(start))
	return nil
}

// Close releases the underlying handle. Calling Close again is a no-op.
func (c *Conn) Close() error {
	if c == nil || c.b == nil {
		return nil
	}

	logger.Debug("Closing %s connection...", c.backend)
	b := c.b
	c.b = nil

	if err := b.Close(); err != nil {
		logger.Debug("Error closing %s connection: %v", c.backend, err)
		return &OpError{Kind: KindBackend, Op: "close", Err: err}
	}
	logger.Debug("Connection closed successfully")
	return nil
}

func (c *Conn) check(op string) error {
	if c == nil || c.b == nil {
		return &OpError{Kind: KindBackend, Op: op, Err: ErrClosed}
	}
	return nil
}

func (c *Conn) fail(op string, err error) error {
	opErr := classifyOp(op, err)
	logger.Debug("%s on %s backend failed (%s): %v", op, c.backend, opErr.Kind, err)
	return opErr
}
