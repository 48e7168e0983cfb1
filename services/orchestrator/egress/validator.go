// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package egress validates caller-supplied URLs before any outbound fetch.
//
// # Description
//
// Every URL that reaches this service from a user or a search result must be
// validated here before a fetch is attempted. The validator rejects non-HTTP
// schemes, localhost, and any host that is (or resolves to) a private or
// reserved network address. Hostnames are resolved at validation time, not at
// fetch time, so an attacker who controls DNS cannot swap in an internal
// address between check and use.
//
// # Thread Safety
//
// A Validator holds no mutable state and is safe for concurrent use.
package egress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
)

// ErrRejected is the sentinel wrapped by every validation failure. Callers
// should map it to an HTTP 400 and must not attempt a partial fetch.
var ErrRejected = errors.New("url rejected")

// ResolveFunc resolves a hostname to its addresses. Injectable for tests.
type ResolveFunc func(ctx context.Context, host string) ([]net.IP, error)

// Validator checks outbound URLs against SSRF rules and an optional
// domain allow-list.
type Validator struct {
	resolve ResolveFunc

	// allowList, when non-empty, restricts hosts to exact matches or
	// subdomains of the listed registrable domains.
	allowList []string
}

// Option configures a Validator.
type Option func(*Validator)

// WithResolver overrides the DNS resolver used at validation time.
func WithResolver(fn ResolveFunc) Option {
	return func(v *Validator) { v.resolve = fn }
}

// WithAllowList enables strict mode: any host not matching one of the given
// domains (exactly or as a subdomain) is rejected even if publicly routable.
func WithAllowList(domains []string) Option {
	return func(v *Validator) {
		for _, d := range domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				v.allowList = append(v.allowList, d)
			}
		}
	}
}

// NewValidator creates a validator using the system resolver.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		resolve: func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, 0, len(addrs))
			for _, a := range addrs {
				ips = append(ips, a.IP)
			}
			return ips, nil
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses raw and applies the rejection rules in order. It returns the
// parsed URL on acceptance, or an error wrapping ErrRejected with the reason.
// DNS resolution failure is a rejection: this check fails closed.
func (v *Validator) Validate(ctx context.Context, raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: not an absolute URL", ErrRejected)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrRejected, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, fmt.Errorf("%w: localhost not allowed", ErrRejected)
	}

	if len(v.allowList) > 0 && !v.hostAllowed(host) {
		return nil, fmt.Errorf("%w: host %q not in allow-list", ErrRejected, host)
	}

	// Literal addresses are checked directly, without resolution.
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateOrReserved(ip) {
			return nil, fmt.Errorf("%w: address %s is private or reserved", ErrRejected, ip)
		}
		return parsed, nil
	}

	ips, err := v.resolve(ctx, host)
	if err != nil || len(ips) == 0 {
		slog.Warn("egress: DNS resolution failed, rejecting", "host", host, "error", err)
		return nil, fmt.Errorf("%w: could not resolve host %q", ErrRejected, host)
	}
	for _, ip := range ips {
		if isPrivateOrReserved(ip) {
			return nil, fmt.Errorf("%w: host %q resolves to private address %s", ErrRejected, host, ip)
		}
	}

	return parsed, nil
}

func (v *Validator) hostAllowed(host string) bool {
	for _, d := range v.allowList {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// isPrivateOrReserved reports whether ip falls in a range this service must
// never fetch from: IPv4 10.0.0.0/8, 127.0.0.0/8, 169.254.0.0/16,
// 172.16.0.0/12, 192.168.0.0/16; IPv6 ::1, fc00::/7 and fe80::/10.
func isPrivateOrReserved(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
