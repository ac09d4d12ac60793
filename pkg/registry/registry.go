// Package registry resolves which registry serves a TLD and looks up domain
// registration data over WHOIS or RDAP, normalizing both into a Record.
package registry

import (
	"context"
	"time"
)

// Protocol is the wire protocol a registry speaks.
type Protocol string

const (
	// ProtocolWHOIS is the line-oriented port 43 protocol.
	ProtocolWHOIS Protocol = "whois"
	// ProtocolRDAP is the JSON over HTTPS protocol.
	ProtocolRDAP Protocol = "rdap"
)

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool { return p == ProtocolWHOIS || p == ProtocolRDAP }

// Route tells how to reach the registry of a TLD.
type Route struct {
	TLD      string   `json:"tld" yaml:"tld"`
	Protocol Protocol `json:"protocol" yaml:"protocol"`
	// Server is a host[:port] for WHOIS and a base URL for RDAP.
	Server string `json:"server" yaml:"server"`
}

// Record is the canonical registration data of one domain, whatever protocol
// produced it. Fields the registry did not report are left empty.
type Record struct {
	Domain         string
	Registrar      string
	RegistrarURL   string
	ExpirationDate *time.Time
	UpdatedDate    *time.Time
	CreatedDate    *time.Time
	AbuseEmail     string
	Nameservers    []string
	StatusFlags    []string
	// Raw is the unparsed response.
	Raw    string
	Source Protocol
}

// Empty reports whether the record carries nothing worth storing.
func (r *Record) Empty() bool {
	return r.ExpirationDate == nil &&
		r.Registrar == "" &&
		len(r.Nameservers) == 0 &&
		len(r.StatusFlags) == 0
}

// Lookuper fetches registration data for a domain name.
//
//go:generate mockgen -package mockregistry -source=registry.go -destination=mock/mockregistry.go *
type Lookuper interface {
	// Lookup returns the normalized record of name. Failures carry one of
	// the serrors kinds listed in IsTransient and IsPermanent.
	Lookup(ctx context.Context, name string) (*Record, error)
}

// ProtocolClient queries one registry server with one protocol.
type ProtocolClient interface {
	Query(ctx context.Context, route Route, name string) (*Record, error)
}

// Discoverer finds the route of a TLD from some source of truth. It returns
// serrors.ErrUnknownTLD when the source does not know the TLD.
type Discoverer interface {
	Discover(ctx context.Context, tld string) (Route, error)
}
