package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStitchDimensions(t *testing.T) {
	front := encodePNG(t, 40, 80, color.RGBA{R: 255, A: 255})
	back := encodePNG(t, 30, 40, color.RGBA{B: 255, A: 255})

	out, err := Stitch(front, back, DefaultMaxImageSide)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	// front is scaled from 40x80 to 20x40
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	r, _, b, _ := img.At(5, 20).RGBA()
	assert.Greater(t, r, b)
	r, _, b, _ = img.At(40, 20).RGBA()
	assert.Greater(t, b, r)
}

func TestStitchRejectsGarbage(t *testing.T) {
	_, err := Stitch([]byte("not an image"), encodePNG(t, 2, 2, color.White), DefaultMaxImageSide)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// pngHeader returns the signature and IHDR chunk of a truecolor PNG. It is
// enough for image.DecodeConfig but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestStitchRejectsOversizedImages(t *testing.T) {
	small := encodePNG(t, 4, 4, color.White)

	_, err := Stitch(pngHeader(12000, 12000), small, DefaultMaxImageSide)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "front image is 12000x12000")

	_, err = Stitch(small, pngHeader(100, 9000), DefaultMaxImageSide)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "back image")

	_, err = Stitch(encodePNG(t, 40, 80, color.White), small, 64)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Stitch(encodePNG(t, 40, 64, color.White), small, 64)
	assert.NoError(t, err)
}

func TestFinalizeRejectsOversizedPhoto(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	f.pair(t, "AAA", "BBB")
	objects := NewMemoryObjectStore()
	svc := NewPostService(f.resolver, f.store.Couples, f.store.Prompts, f.store.Posts, objects, 32)
	ctx := as("AAA")

	prompt, err := svc.CreatePrompt(ctx, CreatePromptRequest{Kind: models.PromptPhoto})
	require.NoError(t, err)
	front, err := svc.GetPreSignedURL(ctx, UploadRequest{PromptID: prompt.ID, Side: "front"})
	require.NoError(t, err)
	back, err := svc.GetPreSignedURL(ctx, UploadRequest{PromptID: prompt.ID, Side: "back"})
	require.NoError(t, err)

	require.NoError(t, objects.Put(context.Background(), front.Key, encodePNG(t, 64, 16, color.White), "image/png"))
	require.NoError(t, objects.Put(context.Background(), back.Key, encodePNG(t, 16, 16, color.Black), "image/png"))

	_, err = svc.Finalize(ctx, FinalizeRequest{PromptID: prompt.ID, FrontKey: front.Key, BackKey: back.Key})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, strings.Count(err.Error(), "validation error"))

	posts, total, err := svc.GetPosts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)
}

func TestFinalize(t *testing.T) {
	f := newFixture(t, "AAA", "BBB", "CCC", "DDD")
	f.pair(t, "AAA", "BBB")
	f.pair(t, "CCC", "DDD")
	objects := NewMemoryObjectStore()
	svc := NewPostService(f.resolver, f.store.Couples, f.store.Prompts, f.store.Posts, objects, 0)
	ctx := as("AAA")

	prompt, err := svc.CreatePrompt(ctx, CreatePromptRequest{Kind: models.PromptPhoto})
	require.NoError(t, err)

	frontUpload, err := svc.GetPreSignedURL(ctx, UploadRequest{PromptID: prompt.ID, Side: "front"})
	require.NoError(t, err)
	backUpload, err := svc.GetPreSignedURL(as("BBB"), UploadRequest{PromptID: prompt.ID, Side: "back", ContentType: "image/png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(frontUpload.Key, "raw/"))

	require.NoError(t, objects.Put(context.Background(), frontUpload.Key, encodePNG(t, 10, 10, color.White), "image/png"))
	require.NoError(t, objects.Put(context.Background(), backUpload.Key, encodePNG(t, 10, 10, color.Black), "image/png"))

	post, err := svc.Finalize(ctx, FinalizeRequest{PromptID: prompt.ID, FrontKey: frontUpload.Key, BackKey: backUpload.Key, IsLate: true})
	require.NoError(t, err)
	assert.True(t, post.IsLate)
	assert.True(t, strings.HasPrefix(post.ImageURL, "memory://final/"))

	posts, total, err := svc.GetPosts(as("BBB"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	// another couple can see neither the prompt nor the feed
	_, err = svc.Finalize(as("CCC"), FinalizeRequest{PromptID: prompt.ID, FrontKey: frontUpload.Key, BackKey: backUpload.Key})
	assert.True(t, IsNotFound(err))
	posts, _, err = svc.GetPosts(as("CCC"), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFinalizeValidation(t *testing.T) {
	f := newFixture(t, "AAA", "BBB", "CCC")
	f.pair(t, "AAA", "BBB")
	svc := NewPostService(f.resolver, f.store.Couples, f.store.Prompts, f.store.Posts, NewMemoryObjectStore(), 0)

	_, err := svc.Finalize(as("AAA"), FinalizeRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	prompt, err := svc.CreatePrompt(as("AAA"), CreatePromptRequest{Kind: models.PromptPhoto})
	require.NoError(t, err)

	_, err = svc.Finalize(as("AAA"), FinalizeRequest{PromptID: prompt.ID, FrontKey: "raw/other/x", BackKey: "raw/other/y"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Finalize(as("CCC"), FinalizeRequest{PromptID: prompt.ID, FrontKey: "a", BackKey: "b"})
	assert.ErrorIs(t, err, apperr.ErrNoCouple)

	_, err = svc.GetPreSignedURL(as("AAA"), UploadRequest{PromptID: prompt.ID, Side: "left"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
