// Package session is the database collaborator: a factory that returns a
// session with one method, Execute(query) -> an iterable of rows
// addressable by column name. A session is safe to create once per
// worker and to use concurrently only within that worker; workers never
// share sessions.
package session

import (
	"crypto/tls"
	"fmt"
	"math/rand"
	"strings"

	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/gocql/gocql"
)

// Iter streams rows from a single executed query.
type Iter interface {
	// Next advances to the next row. ok is false once the iterator is
	// exhausted; callers must then check Err.
	Next() (pipeline.Row, bool)
	Err() error
}

// Session is the collaborator interface workers hold for their lifetime.
type Session interface {
	Execute(query string) (Iter, error)
	Close()
}

// Config carries everything needed to open one authenticated, optionally
// TLS-wrapped, optionally datacenter-pinned session. Host may be a single
// hostname or a comma-separated list; workers pick one entry uniformly at
// random, per the worker pool's host-selection step.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Keyspace string

	Datacenter string

	SSLCACert   string
	SSLCert     string
	SSLKey      string
	SSLUseTLSv1 bool
	SSLEnabled  bool
}

// PickHost chooses one host from a possibly comma-separated list.
func PickHost(hostSpec string) string {
	parts := strings.Split(hostSpec, ",")
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(parts[rand.Intn(len(parts))])
}

// Connect opens a new gocql session against cfg.Host (after host
// selection), authenticates with the configured username/password, applies
// the optional SSL/mTLS and datacenter-pinning options, and issues
// `use <keyspace>` before returning.
func Connect(cfg Config) (Session, error) {
	host := PickHost(cfg.Host)

	cluster := gocql.NewCluster(host)
	if cfg.Port != 0 {
		cluster.Port = cfg.Port
	}
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: cfg.User,
		Password: cfg.Password,
	}

	if cfg.SSLEnabled || cfg.SSLCACert != "" || cfg.SSLCert != "" {
		sslOpts := &gocql.SslOptions{
			CaPath:                 cfg.SSLCACert,
			CertPath:               cfg.SSLCert,
			KeyPath:                cfg.SSLKey,
			EnableHostVerification: false,
		}
		if cfg.SSLUseTLSv1 {
			sslOpts.Config = &tls.Config{MinVersion: tls.VersionTLS10, MaxVersion: tls.VersionTLS10}
		} else {
			sslOpts.Config = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		cluster.SslOpts = sslOpts
	}

	if cfg.Datacenter != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.DCAwareRoundRobinPolicy(cfg.Datacenter)
	}

	cqlSession, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session: connect to %s: %w", host, err)
	}

	s := &gocqlSession{session: cqlSession}
	if cfg.Keyspace != "" {
		if _, err := s.Execute("use " + cfg.Keyspace); err != nil {
			cqlSession.Close()
			return nil, fmt.Errorf("session: use keyspace %s: %w", cfg.Keyspace, err)
		}
	}
	return s, nil
}

type gocqlSession struct {
	session *gocql.Session
}

func (s *gocqlSession) Execute(query string) (Iter, error) {
	iter := s.session.Query(query).Iter()
	return &gocqlIter{iter: iter}, nil
}

func (s *gocqlSession) Close() {
	s.session.Close()
}

type gocqlIter struct {
	iter *gocql.Iter
}

func (it *gocqlIter) Next() (pipeline.Row, bool) {
	row := make(map[string]interface{})
	if !it.iter.MapScan(row) {
		return nil, false
	}
	return pipeline.Row(row), true
}

func (it *gocqlIter) Err() error {
	return it.iter.Close()
}
