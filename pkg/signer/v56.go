package signer

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"hash/crc32"
	"strconv"
)

const (
	digestAlphabet = "A4NjFqYu5wPHsO0XTdDgMa2r1ZQocVte9UJBvk6/7=yRnhISGKblCWi+LpfE8xzm3"
	commonAlphabet = "ZmserbBoHQtNP+wOcza/LpngG8yJq42KWYj0DSfdikx3VT16IlUAFM97hECvuRX5"

	// checksum covers x-t (13 digits) followed by x-s (44 chars)
	checksumSpan = 57
	checksumMask = 0xEDB88320
)

var commonEncoding = base64.NewEncoding(commonAlphabet)

// commonPayload field order is part of the upstream contract
type commonPayload struct {
	S0  int    `json:"s0"`
	S1  string `json:"s1"`
	X0  string `json:"x0"`
	X1  string `json:"x1"`
	X2  string `json:"x2"`
	X3  string `json:"x3"`
	X4  string `json:"x4"`
	X5  string `json:"x5"`
	X6  string `json:"x6"`
	X7  string `json:"x7"`
	X8  string `json:"x8"`
	X9  int32  `json:"x9"`
	X10 int    `json:"x10"`
}

type creatorPayload struct {
	SignSvn     string `json:"signSvn"`
	SignType    string `json:"signType"`
	AppID       string `json:"appId"`
	SignVersion string `json:"signVersion"`
	Payload     string `json:"payload"`
}

type v56 struct{}

func (v56) general(a1, target string, body []byte, xt int64) (string, string) {
	ts := strconv.FormatInt(xt, 10)
	sum := md5.Sum([]byte(ts + "test" + target + string(body)))
	xs := encodeDigest(hex.EncodeToString(sum[:]))

	common, _ := EncodeBody(commonPayload{
		S0:  5,
		X0:  "1",
		X1:  "3.2.0",
		X2:  "Windows",
		X3:  "xhs-pc-web",
		X4:  "2.3.1",
		X5:  a1,
		X6:  ts,
		X7:  xs,
		X9:  checksum(ts + xs),
		X10: 1,
	})
	return xs, commonEncoding.EncodeToString(common)
}

func (v56) creator(a1, target string, xt int64) string {
	sum := md5.Sum([]byte(target))
	raw, _ := EncodeBody(creatorPayload{
		SignSvn:     "56",
		SignType:    "x2",
		AppID:       "ugc",
		SignVersion: "1",
		Payload:     hex.EncodeToString(sum[:]),
	})
	return "XYW_" + base64.StdEncoding.EncodeToString(raw)
}

// encodeDigest packs each 3-byte group of the hex digest into four
// alphabet symbols. Index 64 marks a missing byte.
func encodeDigest(digest string) string {
	n := len(digest)
	out := make([]byte, 0, (n+2)/3*4)
	for i := 0; i < n; i += 3 {
		o := int(digest[i])
		g, h := 0, 0
		if i+1 < n {
			g = int(digest[i+1])
		}
		if i+2 < n {
			h = int(digest[i+2])
		}

		v := o >> 2
		x := ((o & 3) << 4) | (g >> 4)
		p := ((g & 15) << 2) | (h >> 6)
		b := 64
		if h != 0 {
			b = h & 63
		}
		if g == 0 {
			p, b = 64, 64
		}
		out = append(out, digestAlphabet[v], digestAlphabet[x], digestAlphabet[p], digestAlphabet[b])
	}
	return string(out)
}

func checksum(s string) int32 {
	if len(s) > checksumSpan {
		s = s[:checksumSpan]
	}
	return int32(crc32.ChecksumIEEE([]byte(s)) ^ checksumMask)
}
