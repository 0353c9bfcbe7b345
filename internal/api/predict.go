package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/ppiankov/newsguard/internal/model"
)

var errMissingConfidence = errors.New("response has no confidence")

// ImageRequest is the image+text analysis variant.
// Image is required; restricting it to image media types is the caller's job.
type ImageRequest struct {
	Text     string    // May be empty
	Filename string    // Name reported for the file part
	Image    io.Reader // Image bytes
	UserID   string
}

// URLRequest is the URL analysis variant. URL must be an absolute URL.
type URLRequest struct {
	URL    string
	UserID string
}

type urlPayload struct {
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// PredictImage submits an image with its accompanying text to POST /predict
func (c *Client) PredictImage(ctx context.Context, in ImageRequest) (*model.PredictionResult, error) {
	body, contentType, err := encodeImageForm(in)
	if err != nil {
		return nil, &AnalysisError{Variant: model.VariantImage, Message: GenericImageAnalysisMessage, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return nil, &AnalysisError{Variant: model.VariantImage, Message: GenericImageAnalysisMessage, Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	return c.predict(req, model.VariantImage)
}

// PredictURL submits an article URL to POST /predict/url
func (c *Client) PredictURL(ctx context.Context, in URLRequest) (*model.PredictionResult, error) {
	payload, err := json.Marshal(urlPayload{URL: in.URL, UserID: in.UserID})
	if err != nil {
		return nil, &AnalysisError{Variant: model.VariantURL, Message: GenericURLAnalysisMessage, Cause: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict/url", bytes.NewReader(payload))
	if err != nil {
		return nil, &AnalysisError{Variant: model.VariantURL, Message: GenericURLAnalysisMessage, Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.predict(req, model.VariantURL)
}

// predict sends an analysis request and normalizes the response
func (c *Client) predict(req *http.Request, variant model.Variant) (*model.PredictionResult, error) {
	generic := genericAnalysisMessage(variant)

	status, statusText, body, err := c.do(req)
	if err != nil {
		return nil, &AnalysisError{Variant: variant, StatusCode: status, Message: generic, Cause: err}
	}

	if !isSuccess(status) {
		msg := generic
		if detail, ok := errorDetail(body); ok {
			msg = detail
		}
		return nil, &AnalysisError{
			Variant:    variant,
			StatusCode: status,
			Message:    msg,
			Cause:      &statusError{StatusCode: status, Status: statusText},
		}
	}

	var result model.PredictionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &AnalysisError{Variant: variant, StatusCode: status, Message: generic, Cause: fmt.Errorf("unmarshal response: %w", err)}
	}
	var required struct {
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(body, &required); err != nil || required.Confidence == nil {
		return nil, &AnalysisError{Variant: variant, StatusCode: status, Message: generic, Cause: errMissingConfidence}
	}
	if err := result.Validate(); err != nil {
		return nil, &AnalysisError{Variant: variant, StatusCode: status, Message: generic, Cause: err}
	}

	// A scraped headline only exists for URL analyses
	if variant != model.VariantURL {
		result.ScrapedHeadline = nil
	}

	return &result, nil
}

// encodeImageForm builds the multipart body with fields text, file and user_id
func encodeImageForm(in ImageRequest) (io.Reader, string, error) {
	if in.Image == nil {
		return nil, "", fmt.Errorf("image is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("text", in.Text); err != nil {
		return nil, "", fmt.Errorf("write text field: %w", err)
	}

	if err := writeFilePart(w, in.Filename, in.Image); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("user_id", in.UserID); err != nil {
		return nil, "", fmt.Errorf("write user_id field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// writeFilePart writes the file field, sniffing its content type from the first bytes
func writeFilePart(w *multipart.Writer, filename string, r io.Reader) error {
	if filename == "" {
		filename = "upload"
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", http.DetectContentType(data))

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	return nil
}
