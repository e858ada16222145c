package signer

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	xerrors "xhscrawler/pkg/errors"
)

// DefaultVersion is the transform version used when none is configured
const DefaultVersion = "56"

// Signature holds the authenticity fields for one request
type Signature struct {
	XS       string
	XT       int64
	XSCommon string
}

// Signer produces signatures for the two upstream API families
type Signer interface {
	// Sign signs a PC web request. body must be the exact bytes sent.
	Sign(a1, target string, body []byte) (Signature, error)
	// SignCreator signs a creator platform request. XSCommon is left empty.
	SignCreator(a1, target string) (Signature, error)
}

// Tracer generates the trace id headers sent alongside a signature
type Tracer interface {
	B3TraceID() string
	XrayTraceID() string
}

// algorithm is one versioned upstream transform. Implementations must be
// pure in their arguments.
type algorithm interface {
	general(a1, target string, body []byte, xt int64) (xs, xsCommon string)
	creator(a1, target string, xt int64) string
}

// registry is read-only after init
var registry = map[string]algorithm{
	"56": v56{},
}

// Versions lists the registered transform versions
func Versions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Option configures a Transform
type Option func(*Transform)

// WithClock replaces the wall clock used for x-t and trace ids
func WithClock(clock func() time.Time) Option {
	return func(t *Transform) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithRand replaces the random source used for trace ids and search ids
func WithRand(r *rand.Rand) Option {
	return func(t *Transform) {
		if r != nil {
			t.rnd = r
		}
	}
}

// Transform signs requests with a fixed algorithm version. It implements
// both Signer and Tracer and is safe for concurrent use.
type Transform struct {
	version string
	alg     algorithm
	clock   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
	seq atomic.Uint32
}

// New returns the transform registered for version
func New(version string, opts ...Option) (*Transform, error) {
	if version == "" {
		version = DefaultVersion
	}

	alg, ok := registry[version]
	if !ok {
		return nil, xerrors.New(xerrors.KindSigningTransformUnavailable,
			"no signing transform registered for version %q", version)
	}

	t := &Transform{
		version: version,
		alg:     alg,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Version returns the algorithm version in use
func (t *Transform) Version() string {
	return t.version
}

func (t *Transform) Sign(a1, target string, body []byte) (Signature, error) {
	if target == "" {
		return Signature{}, xerrors.New(xerrors.KindInvalidInput, "empty signing target")
	}
	xt := t.clock().UnixMilli()
	xs, common := t.alg.general(a1, target, body, xt)
	return Signature{XS: xs, XT: xt, XSCommon: common}, nil
}

func (t *Transform) SignCreator(a1, target string) (Signature, error) {
	if target == "" {
		return Signature{}, xerrors.New(xerrors.KindInvalidInput, "empty signing target")
	}
	xt := t.clock().UnixMilli()
	return Signature{XS: t.alg.creator(a1, target, xt), XT: xt}, nil
}

func (t *Transform) intn(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Intn(n)
}

// Int31 draws from the transform's random source
func (t *Transform) Int31() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Int31()
}

// Now returns the transform clock. Together with Int31 it seeds search ids.
func (t *Transform) Now() time.Time {
	return t.clock()
}
