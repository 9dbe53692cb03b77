package imagehash_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadsh/spamhunter/internal/imagehash"
)

func checkerboardPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestHash_SHA512(t *testing.T) {
	t.Parallel()

	h := imagehash.New(2)
	defer h.Close()

	digest, err := h.Hash(t.Context(), []byte("avatar bytes"), imagehash.SHA512)
	require.NoError(t, err)
	assert.Len(t, digest, 64)
}

func TestHash_PerceptualAlgorithms(t *testing.T) {
	t.Parallel()

	img := checkerboardPNG(t)
	h := imagehash.New(2)
	defer h.Close()

	for _, algo := range []imagehash.Algorithm{
		imagehash.AverageHash, imagehash.DHash, imagehash.PHash, imagehash.WHash,
	} {
		digest, err := h.Hash(t.Context(), img, algo)
		require.NoError(t, err, "algorithm %s", algo)
		assert.Len(t, digest, 8, "algorithm %s", algo)
	}
}

func TestHash_UnknownAlgorithm(t *testing.T) {
	t.Parallel()

	h := imagehash.New(1)
	defer h.Close()

	_, err := h.Hash(t.Context(), []byte("x"), imagehash.Algorithm("rot13"))
	require.ErrorIs(t, err, imagehash.ErrUnknownAlgorithm)
}

func TestHash_ContextCanceled(t *testing.T) {
	t.Parallel()

	h := imagehash.New(1)
	defer h.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := h.Hash(ctx, checkerboardPNG(t), imagehash.SHA512)
	assert.Error(t, err)
}

func TestHash_SameImageIsDeterministic(t *testing.T) {
	t.Parallel()

	img := checkerboardPNG(t)
	h := imagehash.New(2)
	defer h.Close()

	d1, err := h.Hash(t.Context(), img, imagehash.PHash)
	require.NoError(t, err)

	d2, err := h.Hash(t.Context(), img, imagehash.PHash)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestHash_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	h := imagehash.New(1)
	defer h.Close()

	img := checkerboardPNG(t)

	errCh := make(chan error, 4)
	for range 4 {
		go func() {
			_, err := h.Hash(t.Context(), img, imagehash.AverageHash)
			errCh <- err
		}()
	}

	deadline := time.After(5 * time.Second)
	for range 4 {
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-deadline:
			t.Fatal("timed out waiting for bounded pool to drain jobs")
		}
	}
}
