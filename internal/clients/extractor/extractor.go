// Package extractor implements C6: pulling structured label fields out of
// a label image via GCP Vision OCR. Adapted from the wider OCR client the
// teacher used for documents and PDFs, narrowed to the single-image,
// single-pass contract this domain needs.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	xdraw "golang.org/x/image/draw"

	"github.com/ttbverify/labelverify/internal/domain"
	labelerrors "github.com/ttbverify/labelverify/internal/pkg/errors"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

const maxLongestEdge = 1024

// Extractor is the contract the Executor depends on.
type Extractor interface {
	Extract(ctx context.Context, imageBytes []byte, contentType string) (domain.ExtractedFields, error)
	Close() error
}

type visionExtractor struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

// New constructs a GCP Vision-backed Extractor. Credentials come from
// explicit ClientOptions, else GOOGLE_APPLICATION_CREDENTIALS_JSON, else
// GOOGLE_APPLICATION_CREDENTIALS; with none of these New returns an error
// (there is no application-default fallback).
func New(ctx context.Context, log *logger.Logger, opts ...ClientOption) (Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("extractor: logger required")
	}
	clientOpts, err := resolveClientOptions(opts...)
	if err != nil {
		return nil, err
	}
	client, err := vision.NewImageAnnotatorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("extractor: vision client: %w", err)
	}
	return &visionExtractor{log: log.With("service", "extractor"), client: client}, nil
}

func (e *visionExtractor) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Close()
}

func (e *visionExtractor) Extract(ctx context.Context, imageBytes []byte, contentType string) (domain.ExtractedFields, error) {
	prepared, err := prepareImage(imageBytes, contentType)
	if err != nil {
		e.log.Warn("image prep failed, submitting original bytes", "error", err)
		prepared = imageBytes
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: prepared},
				Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			},
		},
	}

	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("extractor: vision call: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return domain.ExtractedFields{}, labelerrors.ErrExtractionFailed
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return domain.ExtractedFields{}, fmt.Errorf("extractor: vision annotate error: %s", r0.Error.Message)
	}

	var rawText string
	if r0.FullTextAnnotation != nil {
		rawText = strings.TrimSpace(r0.FullTextAnnotation.Text)
	}
	if rawText == "" {
		return domain.ExtractedFields{}, labelerrors.ErrExtractionFailed
	}

	fields := ParseLabelText(rawText)
	if fields.Empty() {
		return domain.ExtractedFields{}, labelerrors.ErrExtractionFailed
	}
	return fields, nil
}

// prepareImage resizes an image whose longest edge exceeds maxLongestEdge
// down to maxLongestEdge, preserving aspect ratio, and re-encodes it as
// JPEG; smaller images are returned unchanged. Formats it cannot decode
// return an error, and Extract then submits the original bytes unresized.
func prepareImage(raw []byte, contentType string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxLongestEdge {
		return raw, nil
	}

	scale := float64(maxLongestEdge) / float64(longest)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// parseFloatLoose trims common label cruft (%, whitespace) before parsing.
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
