package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionOracle reads text with Google Cloud Vision TEXT_DETECTION.
type VisionOracle struct {
	svc *vision.Service
}

// NewVisionOracle authenticates with the given service-account file, or with
// application default credentials when the path is empty.
func NewVisionOracle(ctx context.Context, credentialsFile string) (*VisionOracle, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision.NewService: %w", err)
	}
	return &VisionOracle{svc: svc}, nil
}

// DetectText returns the full text annotation, or "" when the image has none.
func (o *VisionOracle) DetectText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := o.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision: %s (code %d)", r.Error.Message, r.Error.Code)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}
