package request

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
)

// Fingerprint is the deterministic identity of a cacheable request:
// sha256 over (dataset, normalized query text, query vector hash, k,
// alpha, method). Tenant is deliberately excluded so identical queries
// from different tenants share one cache entry.
func (r *Request) Fingerprint() string {
	h := sha256.New()
	sep := []byte{0}

	h.Write([]byte(r.datasetID))
	h.Write(sep)
	h.Write([]byte(r.normalizedText()))
	h.Write(sep)
	h.Write([]byte(r.VectorHash()))
	h.Write(sep)
	h.Write([]byte(strconv.Itoa(r.k)))
	h.Write(sep)
	// Shortest round-trip formatting keeps float identity stable.
	h.Write([]byte(strconv.FormatFloat(r.alpha, 'g', -1, 64)))
	h.Write(sep)
	h.Write([]byte(r.fuseMethod))

	return hex.EncodeToString(h.Sum(nil))
}

// VectorHash returns the sha256 of the query vector's little-endian
// float32 encoding, or "" when the request is text-only.
func (r *Request) VectorHash() string {
	if len(r.queryVector) == 0 {
		return ""
	}
	buf := make([]byte, len(r.queryVector)*4)
	for i, f := range r.queryVector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
