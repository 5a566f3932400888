package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"path"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// Static errors for err113 compliance.
var (
	ErrFileDownloadFailed = errors.New("file download failed")
	ErrFileUploadFailed   = errors.New("file upload failed")
)

// defaultUploadName is used when no file name can be derived from the
// source URL.
const defaultUploadName = "upload"

// AuthorizeFunc returns the Authorization header value for upload service
// requests. The client installs its own request signing here so uploads
// authenticate exactly like API calls.
type AuthorizeFunc func(ctx context.Context) (string, error)

// UploadTransport is the default pco.FileTransport. It downloads the file
// bytes from the source URL and forwards them to the upload service as a
// multipart form, returning the identifier the service assigns. The upload
// service is a separate host from the API and sits outside the request
// pipeline, so uploads are not counted against the API rate limit.
type UploadTransport struct {
	endpoint  string
	client    *retryablehttp.Client
	authorize AuthorizeFunc
}

// NewUploadTransport creates a file transport posting to the given upload
// endpoint. An empty endpoint selects the production upload service and a
// nil client gets a retrying HTTP client sized for file downloads. The
// authorize function signs upload posts; the download from the source URL
// stays unsigned because the source is an arbitrary external host.
func NewUploadTransport(endpoint string, client *retryablehttp.Client, authorize AuthorizeFunc) *UploadTransport {
	if endpoint == "" {
		endpoint = pco.DefaultUploadEndpoint
	}

	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = constants.DefaultRetryMax
		client.HTTPClient.Timeout = constants.FileDownloadTimeout
		client.Logger = nil
		// Hand back the final non-2xx response instead of a giving-up
		// error so the failure can report the service's status.
		client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	}

	return &UploadTransport{
		endpoint:  endpoint,
		client:    client,
		authorize: authorize,
	}
}

// Upload implements pco.FileTransport.Upload.
func (t *UploadTransport) Upload(ctx context.Context, request *pco.UploadRequest) (*pco.UploadResult, error) {
	if request == nil || request.SourceURL == "" {
		return nil, constants.ErrEmptySourceURL
	}

	fileName, data, err := t.download(ctx, request.SourceURL)
	if err != nil {
		return nil, err
	}

	if request.FileName != "" {
		fileName = request.FileName
	}

	return t.upload(ctx, fileName, data)
}

// download fetches the file bytes from the source URL.
func (t *UploadTransport) download(ctx context.Context, sourceURL string) (string, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, sourceURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("building download request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("downloading file: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < nethttp.StatusOK || resp.StatusCode >= nethttp.StatusMultipleChoices {
		return "", nil, fmt.Errorf("%w: status %d for %s", ErrFileDownloadFailed, resp.StatusCode, sourceURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("reading file body: %w", err)
	}

	return fileNameFromURL(sourceURL), data, nil
}

// upload posts the file bytes to the upload service as a multipart form.
func (t *UploadTransport) upload(ctx context.Context, fileName string, data []byte) (*pco.UploadResult, error) {
	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}

	_, err = part.Write(data)
	if err != nil {
		return nil, fmt.Errorf("writing multipart form: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("closing multipart form: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, t.endpoint, body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	if t.authorize != nil {
		header, err := t.authorize(ctx)
		if err != nil {
			return nil, fmt.Errorf("signing upload request: %w", err)
		}

		if header != "" {
			req.Header.Set("Authorization", header)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}

	if resp.StatusCode < nethttp.StatusOK || resp.StatusCode >= nethttp.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrFileUploadFailed, resp.StatusCode)
	}

	return parseUploadResult(respBody)
}

// parseUploadResult extracts the assigned file identifier from the upload
// service response. The service wraps uploaded files in a JSON:API list.
func parseUploadResult(body []byte) (*pco.UploadResult, error) {
	var parsed struct {
		Data []struct {
			ID         string `json:"id"`
			Attributes struct {
				Name string `json:"name"`
				UUID string `json:"uuid"`
			} `json:"attributes"`
		} `json:"data"`
	}

	err := json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parsing upload response: %w", err)
	}

	if len(parsed.Data) == 0 {
		return nil, constants.ErrNoFileIdentifier
	}

	identifier := parsed.Data[0].ID
	if identifier == "" {
		identifier = parsed.Data[0].Attributes.UUID
	}

	if identifier == "" {
		return nil, constants.ErrNoFileIdentifier
	}

	return &pco.UploadResult{
		ID:   identifier,
		Name: parsed.Data[0].Attributes.Name,
	}, nil
}

// fileNameFromURL derives an upload name from the last path segment of the
// source URL.
func fileNameFromURL(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Path == "" {
		return defaultUploadName
	}

	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}

	return name
}
