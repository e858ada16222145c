package signer

import (
	"fmt"
	"strings"
)

const traceCharset = "abcdef0123456789"

// seqMask keeps the sequence within the 23 bits below the timestamp
const seqMask = 1<<23 - 1

// B3TraceID returns 16 characters drawn from traceCharset
func (t *Transform) B3TraceID() string {
	var b strings.Builder
	b.Grow(16)
	for i := 0; i < 16; i++ {
		b.WriteByte(traceCharset[t.intn(len(traceCharset))])
	}
	return b.String()
}

// XrayTraceID returns 32 lowercase hex characters: the millisecond clock
// shifted over a rolling sequence, then 16 random hex digits.
func (t *Transform) XrayTraceID() string {
	ms := uint64(t.clock().UnixMilli())
	seq := uint64(t.seq.Add(1) & seqMask)
	head := fmt.Sprintf("%016x", (ms<<23)|seq)

	var b strings.Builder
	b.Grow(32)
	b.WriteString(head)
	for i := 0; i < 16; i++ {
		b.WriteByte(traceCharset[t.intn(len(traceCharset))])
	}
	return b.String()
}
