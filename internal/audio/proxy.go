package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
)

var ErrInvalidKey = errors.New("audio: invalid object key")

// ObjectClient is the part of the S3 client the proxy needs.
type ObjectClient interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Proxy streams objects from a private bucket to the client.
type Proxy struct {
	client ObjectClient
	bucket string
	prefix string
}

func NewProxy(client ObjectClient, bucket, prefix string) *Proxy {
	return &Proxy{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// CleanKey rejects empty, absolute and dot segments.
func CleanKey(raw string) (string, error) {
	if raw == "" || strings.HasPrefix(raw, "/") || strings.Contains(raw, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
		}
	}
	return raw, nil
}

// objectMeta is the subset of object headers passed on to the client.
type objectMeta struct {
	contentType   *string
	contentLength *int64
	contentRange  *string
	acceptRanges  *string
	etag          *string
	lastModified  *time.Time
	cacheControl  *string
}

// Serve answers r with the object stored under key. Range requests are
// forwarded to the bucket and answered with 206. HEAD only fetches metadata.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request, key string) {
	key, err := CleanKey(key)
	if err != nil {
		metrics.AudioProxyRequestsTotal.WithLabelValues("bad_request").Inc()
		httpx.WriteError(w, r, apperr.CodeBadRequest, err)
		return
	}
	objectKey := key
	if p.prefix != "" {
		objectKey = p.prefix + "/" + key
	}

	if r.Method == http.MethodHead {
		out, err := p.client.HeadObject(r.Context(), &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			p.writeUpstreamError(w, r, err)
			return
		}
		writeObjectHeaders(w, key, objectMeta{
			contentType:   out.ContentType,
			contentLength: out.ContentLength,
			acceptRanges:  out.AcceptRanges,
			etag:          out.ETag,
			lastModified:  out.LastModified,
			cacheControl:  out.CacheControl,
		})
		metrics.AudioProxyRequestsTotal.WithLabelValues("head").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	in := &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey),
	}
	if rng := r.Header.Get("Range"); rng != "" {
		in.Range = aws.String(rng)
	}

	out, err := p.client.GetObject(r.Context(), in)
	if err != nil {
		p.writeUpstreamError(w, r, err)
		return
	}
	defer func() { _ = out.Body.Close() }()

	writeObjectHeaders(w, key, objectMeta{
		contentType:   out.ContentType,
		contentLength: out.ContentLength,
		contentRange:  out.ContentRange,
		acceptRanges:  out.AcceptRanges,
		etag:          out.ETag,
		lastModified:  out.LastModified,
		cacheControl:  out.CacheControl,
	})

	status := http.StatusOK
	result := "ok"
	if out.ContentRange != nil {
		status = http.StatusPartialContent
		result = "partial"
	}
	metrics.AudioProxyRequestsTotal.WithLabelValues(result).Inc()
	w.WriteHeader(status)
	_, _ = io.Copy(w, out.Body)
}

func writeObjectHeaders(w http.ResponseWriter, key string, m objectMeta) {
	h := w.Header()
	contentType := aws.ToString(m.contentType)
	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		contentType = ContentTypeFor(key)
	}
	h.Set("Content-Type", contentType)
	if m.contentLength != nil {
		h.Set("Content-Length", strconv.FormatInt(*m.contentLength, 10))
	}
	if v := aws.ToString(m.contentRange); v != "" {
		h.Set("Content-Range", v)
	}
	if v := aws.ToString(m.acceptRanges); v != "" {
		h.Set("Accept-Ranges", v)
	} else {
		h.Set("Accept-Ranges", "bytes")
	}
	if v := aws.ToString(m.etag); v != "" {
		h.Set("ETag", v)
	}
	if m.lastModified != nil {
		h.Set("Last-Modified", m.lastModified.UTC().Format(http.TimeFormat))
	}
	if v := aws.ToString(m.cacheControl); v != "" {
		h.Set("Cache-Control", v)
	}
}

func (p *Proxy) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		metrics.AudioProxyRequestsTotal.WithLabelValues("not_found").Inc()
		httpx.WriteError(w, r, apperr.CodeNotFound, err)
		return
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			metrics.AudioProxyRequestsTotal.WithLabelValues("not_found").Inc()
			httpx.WriteError(w, r, apperr.CodeNotFound, err)
			return
		case "InvalidRange":
			metrics.AudioProxyRequestsTotal.WithLabelValues("bad_range").Inc()
			w.Header().Set("Content-Range", "bytes */*")
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	}
	metrics.AudioProxyRequestsTotal.WithLabelValues("error").Inc()
	httpx.WriteError(w, r, apperr.CodeServerError, err)
}
