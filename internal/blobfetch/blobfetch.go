// Package blobfetch implements the byte-fetch interface the dispatcher's
// attachment/vision branch uses (§4.6 step 8): "fetch the bytes through the
// byte-fetch interface (using a proxy interface when the URL is in the
// known private-storage namespace)". Grounded on the teacher's
// internal/storage/s3.go (aws-sdk-go v1 session/client construction,
// "null service" graceful-disable pattern).
package blobfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	awsv1 "github.com/aws/aws-sdk-go/aws"
	credsv1 "github.com/aws/aws-sdk-go/aws/credentials"
	sessionv1 "github.com/aws/aws-sdk-go/aws/session"
	s3v1 "github.com/aws/aws-sdk-go/service/s3"
)

// Fetcher is the byte-fetch interface: given an attachment URL, return its
// bytes and a MIME content type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPFetcher fetches attachment bytes over plain HTTP(S) — the default
// path for any URL outside the private-storage namespace.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher using http.DefaultClient.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: http.DefaultClient}
}

// Fetch performs a GET against url and returns the body bytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("blobfetch: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("blobfetch: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("blobfetch: fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("blobfetch: read body of %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// S3Fetcher fetches attachment bytes from a private S3-compatible bucket,
// used for the "private-storage namespace" proxy path.
type S3Fetcher struct {
	client *s3v1.S3
	bucket string
	prefix string
}

// NewS3Fetcher builds an S3Fetcher. If endpoint/region/keyID/secret/bucket
// are incomplete, it returns a fetcher that fails closed on every call,
// matching the teacher's "null service" graceful-disable idiom rather than
// panicking at startup.
func NewS3Fetcher(endpoint, region, keyID, secret, bucket, privatePrefix string) (*S3Fetcher, error) {
	if endpoint == "" || region == "" || keyID == "" || secret == "" || bucket == "" {
		return &S3Fetcher{prefix: privatePrefix}, nil
	}

	disableSSL := strings.HasPrefix(strings.ToLower(endpoint), "http://")
	sess, err := sessionv1.NewSession(&awsv1.Config{
		Region:           awsv1.String(region),
		Endpoint:         awsv1.String(endpoint),
		S3ForcePathStyle: awsv1.Bool(true),
		Credentials:      credsv1.NewStaticCredentials(keyID, secret, ""),
		DisableSSL:       awsv1.Bool(disableSSL),
	})
	if err != nil {
		return nil, fmt.Errorf("blobfetch: create aws session: %w", err)
	}
	return &S3Fetcher{client: s3v1.New(sess), bucket: bucket, prefix: privatePrefix}, nil
}

func (f *S3Fetcher) isConfigured() bool {
	return f.client != nil && f.bucket != ""
}

// IsPrivateURL reports whether url falls in this fetcher's known
// private-storage namespace, the condition the dispatcher's attachment
// branch uses to decide whether to route through the proxy interface.
func (f *S3Fetcher) IsPrivateURL(url string) bool {
	return f.prefix != "" && strings.HasPrefix(url, f.prefix)
}

// Fetch downloads the object whose key is url with the private-storage
// prefix stripped.
func (f *S3Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if !f.isConfigured() {
		return nil, "", fmt.Errorf("blobfetch: s3 fetcher is not configured")
	}
	key := strings.TrimPrefix(url, f.prefix)
	result, err := f.client.GetObjectWithContext(ctx, &s3v1.GetObjectInput{
		Bucket: awsv1.String(f.bucket),
		Key:    awsv1.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("blobfetch: get object %q: %w", key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("blobfetch: read object %q: %w", key, err)
	}
	contentType := ""
	if result.ContentType != nil {
		contentType = *result.ContentType
	}
	return body, contentType, nil
}

// Router picks between the HTTP and S3 fetchers based on the URL's
// namespace, implementing the "proxy interface when the URL is in the
// known private-storage namespace" rule (§4.6 step 8) behind a single
// Fetcher the dispatcher calls unconditionally.
type Router struct {
	http *HTTPFetcher
	s3   *S3Fetcher
}

// NewRouter builds a Router over the two concrete fetchers.
func NewRouter(http *HTTPFetcher, s3 *S3Fetcher) *Router {
	return &Router{http: http, s3: s3}
}

// Fetch implements Fetcher, routing to the S3 fetcher for private-storage
// URLs and the HTTP fetcher for everything else.
func (r *Router) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if r.s3 != nil && r.s3.IsPrivateURL(url) {
		return r.s3.Fetch(ctx, url)
	}
	return r.http.Fetch(ctx, url)
}

var _ Fetcher = (*Router)(nil)
var _ Fetcher = (*HTTPFetcher)(nil)
var _ Fetcher = (*S3Fetcher)(nil)
