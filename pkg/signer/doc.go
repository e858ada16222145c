// Package signer computes the x-s, x-t and x-s-common headers that the
// Xiaohongshu web and creator APIs require, plus the trace id headers.
//
// Algorithms are registered by version. When the upstream changes its
// client script, add a new algorithm and select it with signer.version;
// nothing outside this package needs to change.
//
//	t, err := signer.New("56")
//	sig, err := t.Sign(cookie.Account(c), "/api/sns/web/v1/feed", body)
//	h := signer.PCHeaders()
//	signer.ApplyPC(h, sig, t)
package signer
