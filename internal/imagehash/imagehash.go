// Package imagehash fingerprints avatar images: one cryptographic digest
// and four perceptual hashes, dispatched onto a bounded CPU-bound worker
// pool so callers never block the goroutine scheduler on image decoding.
package imagehash

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/sourcegraph/conc/pool"
)

// Algorithm names an avatar fingerprinting algorithm, matching the names
// the original hasher dispatched on via Python's hasattr lookup.
type Algorithm string

const (
	SHA512      Algorithm = "sha512"
	AverageHash Algorithm = "average_hash"
	DHash       Algorithm = "dhash"
	PHash       Algorithm = "phash"
	WHash       Algorithm = "whash"
)

// ErrUnknownAlgorithm is returned for any Algorithm value not recognized
// by Hash.
var ErrUnknownAlgorithm = errors.New("imagehash: unknown algorithm")

// Hasher dispatches Hash calls onto a bounded pool of worker goroutines.
type Hasher struct {
	pool *pool.Pool
}

// New builds a Hasher backed by workers goroutines. workers<=0 falls back
// to a single worker.
func New(workers int) *Hasher {
	if workers <= 0 {
		workers = 1
	}

	return &Hasher{pool: pool.New().WithMaxGoroutines(workers)}
}

// Close waits for any in-flight hash jobs to finish.
func (h *Hasher) Close() {
	h.pool.Wait()
}

type hashResult struct {
	digest []byte
	err    error
}

// Hash computes algorithm's digest of avatar. The call blocks the calling
// goroutine (not an OS thread) until a pool slot is free and the job
// completes, or until ctx is done.
func (h *Hasher) Hash(ctx context.Context, avatar []byte, algorithm Algorithm) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resultCh := make(chan hashResult, 1)

	h.pool.Go(func() {
		digest, err := computeHash(avatar, algorithm)
		resultCh <- hashResult{digest: digest, err: err}
	})

	select {
	case r := <-resultCh:
		return r.digest, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func computeHash(avatar []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case SHA512, AverageHash, DHash, PHash, WHash:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}

	if algorithm == SHA512 {
		sum := sha512.Sum512(avatar)
		return sum[:], nil
	}

	img, _, err := image.Decode(bytes.NewReader(avatar))
	if err != nil {
		return nil, fmt.Errorf("imagehash: decode avatar: %w", err)
	}

	switch algorithm {
	case AverageHash:
		h, err := goimagehash.AverageHash(img)
		if err != nil {
			return nil, fmt.Errorf("imagehash: average_hash: %w", err)
		}

		return uint64ToBytes(h.GetHash()), nil
	case DHash:
		h, err := goimagehash.DifferenceHash(img)
		if err != nil {
			return nil, fmt.Errorf("imagehash: dhash: %w", err)
		}

		return uint64ToBytes(h.GetHash()), nil
	case PHash:
		h, err := goimagehash.PerceptionHash(img)
		if err != nil {
			return nil, fmt.Errorf("imagehash: phash: %w", err)
		}

		return uint64ToBytes(h.GetHash()), nil
	case WHash:
		return waveletHash(img), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)

	return b
}
