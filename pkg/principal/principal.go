// Package principal carries the acting user and origin address through a
// context.Context so audited mutations can be attributed without threading an
// explicit actor argument through every call.
//
// A trigger (HTTP middleware, CLI command, job runner, test) installs a Source
// into the context it hands to downstream code:
//
//	ctx = principal.Install(ctx, principal.Source{
//		User: func() string { return currentUser(r) },
//		IP:   func() string { return requestcontext.ClientIP(r.Context()) },
//	})
//
// Non-interactive code installs a fixed identity instead:
//
//	ctx = principal.Set(ctx, principal.Principal{ID: "nightly-reconcile"})
//
// Producers are invoked lazily on every lookup, so they observe the state of
// the unit of work at the moment an event fires rather than at installation.
package principal

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a principal is required but none can be resolved.
var ErrUnavailable = errors.New("principal unavailable")

// Principal identifies who performed an action and from where.
// Empty fields mean the value is absent.
type Principal struct {
	ID string
	IP string
}

// HasID reports whether the principal carries an identifier.
func (p Principal) HasID() bool { return p.ID != "" }

// HasIP reports whether the principal carries an origin address.
func (p Principal) HasIP() bool { return p.IP != "" }

// Source produces the principal for the unit of work it is installed into.
// A nil producer yields nothing.
type Source struct {
	User func() string
	IP   func() string
}

// Static returns a Source that always yields p.
func Static(p Principal) Source {
	return Source{
		User: func() string { return p.ID },
		IP:   func() string { return p.IP },
	}
}

func (s Source) user() string {
	if s.User == nil {
		return ""
	}
	return s.User()
}

func (s Source) ip() string {
	if s.IP == nil {
		return ""
	}
	return s.IP()
}

type sourceKey struct{}

// slot wraps the installed source so Clear can shadow an outer installation.
type slot struct {
	source *Source
}

// Install replaces the active source for every context derived from the result.
// Sources are never merged: a later Install hides any earlier one completely.
func Install(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, slot{source: &src})
}

// Set installs a fixed principal. Used by batch jobs, CLI commands and tests.
func Set(ctx context.Context, p Principal) context.Context {
	return Install(ctx, Static(p))
}

// Clear returns a context with no active source, even if an outer one was installed.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, sourceKey{}, slot{})
}

// Installed reports whether a source is active in ctx.
func Installed(ctx context.Context) bool {
	s, ok := ctx.Value(sourceKey{}).(slot)
	return ok && s.source != nil
}

// Current invokes the active producers. It returns false when no source is
// installed or when both producers yield nothing.
func Current(ctx context.Context) (Principal, bool) {
	s, ok := ctx.Value(sourceKey{}).(slot)
	if !ok || s.source == nil {
		return Principal{}, false
	}
	p := Principal{ID: s.source.user(), IP: s.source.ip()}
	if !p.HasID() && !p.HasIP() {
		return Principal{}, false
	}
	return p, true
}

// Resolve returns the principal to attribute a mutation to. A principal is
// present only when it carries an identifier; the IP may still be empty.
func Resolve(ctx context.Context) (Principal, bool) {
	p, ok := Current(ctx)
	if !ok || !p.HasID() {
		return Principal{}, false
	}
	return p, true
}
