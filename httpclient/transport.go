package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	contentTypeHeader  = "Content-Type"
	userAgentHeader    = "User-Agent"
	refererHeader      = "Referer"
	formURLEncodedType = "application/x-www-form-urlencoded"
)

// Transport performs a single exchange described by a resolved option set.
// Failures are reported through Result, never as a Go error, so that the
// retry loop can inspect them like any other outcome.
type Transport interface {
	Exchange(ctx context.Context, opts Options) Result
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, opts Options) Result

// Exchange calls f(ctx, opts)
func (f TransportFunc) Exchange(ctx context.Context, opts Options) Result { return f(ctx, opts) }

// Result is the outcome of one exchange. ErrorCode is 0 on success; Body is
// empty when the exchange failed. HeaderLines holds the captured
// "Name: value" response header lines in arrival order.
type Result struct {
	Body         string
	ErrorCode    int
	ErrorMessage string
	Info         Info
	HeaderLines  []string
	// Err is the underlying cause of a failure, if any
	Err error
}

// FormFile uploads a local file as one part of a multipart body
type FormFile struct {
	Path        string
	Name        string
	ContentType string
}

var errTooManyRedirects = errors.New("maximum redirects followed")

type certError struct{ err error }

func (e *certError) Error() string { return "unable to set client certificate: " + e.err.Error() }
func (e *certError) Unwrap() error { return e.err }

type readError struct{ err error }

func (e *readError) Error() string { return "read function returned funny value: " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// HTTPTransport executes exchanges with net/http. Every exchange owns a fresh
// connection pool that is released before Exchange returns.
type HTTPTransport struct {
	instrument bool
}

// NewHTTPTransport returns a transport whose round trips are instrumented with otelhttp
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{instrument: true}
}

// Exchange performs the request described by opts
func (t *HTTPTransport) Exchange(ctx context.Context, opts Options) Result {
	start := time.Now()
	rawURL := opts.String(OptURL)
	res := Result{Info: Info{InfoURL: rawURL, InfoHTTPCode: 0}}

	req, uploadSize, err := newHTTPRequest(ctx, opts)
	if err != nil {
		return res.failed(start, err)
	}

	base, err := newNetTransport(opts)
	if err != nil {
		return res.failed(start, err)
	}
	defer base.CloseIdleConnections()

	var rt http.RoundTripper = base
	if t.instrument {
		rt = otelhttp.NewTransport(base)
	}

	client := &http.Client{
		Transport:     rt,
		Timeout:       requestTimeout(opts),
		CheckRedirect: redirectPolicy(opts),
	}

	timer := &traceTimer{start: start}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), timer.clientTrace()))

	resp, err := client.Do(req)
	if err != nil {
		res.Info[InfoSizeUpload] = float64(uploadSize)
		timer.fill(res.Info)
		return res.failed(start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Info[InfoHTTPCode] = resp.StatusCode
		timer.fill(res.Info)
		return res.failed(start, err)
	}

	statusLine := resp.Proto + " " + resp.Status
	headerSize := CaptureHeaderLine(&res.HeaderLines, statusLine) + 2
	for _, line := range headerLines(resp.Header) {
		headerSize += CaptureHeaderLine(&res.HeaderLines, line) + 2
	}
	headerSize += 2

	res.Body = string(body)
	if opts.Bool(OptHeader) {
		res.Body = statusLine + "\r\n" + strings.Join(res.HeaderLines, "\r\n") + "\r\n\r\n" + res.Body
	}

	res.Info[InfoURL] = resp.Request.URL.String()
	res.Info[InfoHTTPCode] = resp.StatusCode
	res.Info[InfoContentType] = resp.Header.Get(contentTypeHeader)
	res.Info[InfoSizeDownload] = float64(len(body))
	res.Info[InfoSizeUpload] = float64(uploadSize)
	res.Info[InfoHeaderSize] = headerSize
	res.Info[InfoRedirectURL] = ""
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := resp.Location(); err == nil {
			res.Info[InfoRedirectURL] = loc.String()
		}
	}
	timer.fill(res.Info)
	res.Info[InfoTotalTime] = time.Since(start).Seconds()
	return res
}

func (r Result) failed(start time.Time, err error) Result {
	r.Body = ""
	r.ErrorCode, r.ErrorMessage = classifyError(err)
	r.Err = err
	r.Info[InfoTotalTime] = time.Since(start).Seconds()
	return r
}

// headerLines renders response headers as "Name: value" lines in a stable order
func headerLines(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			lines = append(lines, name+": "+v)
		}
	}
	return lines
}

func newHTTPRequest(ctx context.Context, opts Options) (*http.Request, int64, error) {
	rawURL := opts.String(OptURL)
	if _, err := url.Parse(rawURL); err != nil {
		return nil, 0, err
	}

	body, contentType, err := encodePostFields(opts[OptPostFields])
	if err != nil {
		return nil, 0, err
	}

	method := strings.ToUpper(opts.String(OptCustomRequest))
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	var reader io.Reader
	var size int64
	if body != nil {
		reader = bytes.NewReader(body)
		size = int64(len(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, err
	}

	for _, line := range opts.Headers(OptHTTPHeader) {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			req.Host = value
			continue
		}
		req.Header.Add(name, value)
	}

	if contentType != "" && req.Header.Get(contentTypeHeader) == "" {
		req.Header.Set(contentTypeHeader, contentType)
	}
	if _, ok := req.Header[userAgentHeader]; !ok {
		// an empty value suppresses the net/http default agent
		req.Header[userAgentHeader] = []string{opts.String(OptUserAgent)}
	}
	if ref := opts.String(OptReferer); ref != "" && req.Header.Get(refererHeader) == "" {
		req.Header.Set(refererHeader, ref)
	}

	return req, size, nil
}

// encodePostFields renders the body option. Strings and bytes are sent as-is
// with a form content type, url.Values and tagged structs are form-encoded,
// and string-keyed maps become multipart/form-data.
func encodePostFields(v any) ([]byte, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), formURLEncodedType, nil
	case []byte:
		return b, formURLEncodedType, nil
	case url.Values:
		return []byte(b.Encode()), formURLEncodedType, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", &readError{err: err}
		}
		return data, "", nil
	case map[string]string:
		fields := make(map[string]any, len(b))
		for k, val := range b {
			fields[k] = val
		}
		return encodeMultipart(fields)
	case map[string]any:
		return encodeMultipart(b)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		values, err := query.Values(v)
		if err != nil {
			return nil, "", NewArgumentError(err.Error(), "postfields")
		}
		return []byte(values.Encode()), formURLEncodedType, nil
	}

	s, ok := scalarString(v)
	if !ok {
		return nil, "", NewArgumentError(fmt.Sprintf("unsupported body type %T", v), "postfields")
	}
	return []byte(s), formURLEncodedType, nil
}

func encodeMultipart(fields map[string]any) ([]byte, string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		if err := writeField(w, name, fields[name]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeField(w *multipart.Writer, name string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case FormFile:
		return writeFile(w, name, v)
	case *FormFile:
		return writeFile(w, name, *v)
	case []string:
		for _, item := range v {
			if err := w.WriteField(name, item); err != nil {
				return err
			}
		}
		return nil
	}

	s, ok := scalarString(value)
	if !ok {
		return NewArgumentError(fmt.Sprintf("unsupported multipart value %T", value), name)
	}
	return w.WriteField(name, s)
}

func writeFile(w *multipart.Writer, field string, f FormFile) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return &readError{err: err}
	}
	filename := f.Name
	if filename == "" {
		filename = filepath.Base(f.Path)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	hdr := make(map[string][]string, 2)
	hdr["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename),
	}
	hdr[contentTypeHeader] = []string{contentType}
	part, err := w.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func newNetTransport(opts Options) (*http.Transport, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if opts.Has(OptSSLVerifyPeer) && !opts.Bool(OptSSLVerifyPeer) {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // explicitly requested by the caller
	}
	if certFile := opts.String(OptSSLCert); certFile != "" {
		keyFile := opts.String(OptSSLKey)
		if keyFile == "" {
			keyFile = certFile
		}
		pair, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, &certError{err: err}
		}
		tlsConfig.Certificates = []tls.Certificate{pair}
	}

	network := "tcp"
	switch opts.Int(OptIPResolve, IPResolveWhatever) {
	case IPResolveV4:
		network = "tcp4"
	case IPResolveV6:
		network = "tcp6"
	}
	dialer := &net.Dialer{Timeout: opts.Duration(OptConnectTimeout, false)}
	if dialer.Timeout == 0 {
		dialer.Timeout = 30 * time.Second
	}

	proxy := http.ProxyFromEnvironment
	if p := opts.String(OptProxy); p != "" {
		proxyURL, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		proxy = http.ProxyURL(proxyURL)
	}

	return &http.Transport{
		Proxy: proxy,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
		ForceAttemptHTTP2:   true,
	}, nil
}

func requestTimeout(opts Options) time.Duration {
	if ms := opts.Duration(OptTimeoutMS, true); ms > 0 {
		return ms
	}
	return opts.Duration(OptTimeout, false)
}

func redirectPolicy(opts Options) func(*http.Request, []*http.Request) error {
	if !opts.Bool(OptFollowLocation) {
		return func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	limit := opts.Int(OptMaxRedirs, DefaultMaxRedirects)
	return func(_ *http.Request, via []*http.Request) error {
		if limit >= 0 && len(via) > limit {
			return errTooManyRedirects
		}
		return nil
	}
}

// classifyError maps a Go network error onto a curl-compatible code and message
func classifyError(err error) (int, string) {
	msg := err.Error()

	var (
		argErr     ClientError
		certErr    *certError
		readErr    *readError
		dnsErr     *net.DNSError
		opErr      *net.OpError
		urlErr     *url.Error
		netErr     net.Error
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
	)

	switch {
	case errors.As(err, &argErr):
		return ErrCodeAbortedByCallback, msg
	case errors.As(err, &certErr):
		return ErrCodeSSLCertProblem, msg
	case errors.As(err, &readErr):
		return ErrCodeReadError, msg
	case errors.Is(err, errTooManyRedirects):
		return ErrCodeTooManyRedirects, msg
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ErrCodeOperationTimedOut, msg
	case errors.Is(err, context.Canceled):
		return ErrCodeAbortedByCallback, msg
	case errors.As(err, &dnsErr):
		return ErrCodeCouldntResolveHost, msg
	case errors.As(err, &verifyErr), errors.As(err, &unknownCA), errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return ErrCodePeerFailedVerify, msg
	case errors.As(err, &recordErr), errors.As(err, &alertErr):
		return ErrCodeSSLConnect, msg
	case strings.Contains(msg, "unsupported protocol scheme"):
		return ErrCodeUnsupportedProto, msg
	case errors.As(err, &opErr):
		switch opErr.Op {
		case "dial":
			return ErrCodeCouldntConnect, msg
		case "write":
			return ErrCodeSendError, msg
		}
		return ErrCodeRecvError, msg
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		return ErrCodeURLMalformat, msg
	default:
		return ErrCodeRecvError, msg
	}
}

// traceTimer records connection milestones relative to start
type traceTimer struct {
	mu         sync.Mutex
	start      time.Time
	dnsDone    time.Time
	connDone   time.Time
	tlsDone    time.Time
	gotConn    time.Time
	firstByte  time.Time
	remoteAddr net.Addr
}

func (t *traceTimer) mark(field *time.Time) {
	t.mu.Lock()
	*field = time.Now()
	t.mu.Unlock()
}

func (t *traceTimer) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone: func(httptrace.DNSDoneInfo) { t.mark(&t.dnsDone) },
		ConnectDone: func(_, _ string, err error) {
			if err == nil {
				t.mark(&t.connDone)
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				t.mark(&t.tlsDone)
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			t.gotConn = time.Now()
			t.remoteAddr = info.Conn.RemoteAddr()
			t.mu.Unlock()
		},
		GotFirstResponseByte: func() { t.mark(&t.firstByte) },
	}
}

func (t *traceTimer) since(at time.Time) float64 {
	if at.IsZero() {
		return 0
	}
	return at.Sub(t.start).Seconds()
}

func (t *traceTimer) fill(info Info) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info[InfoNameLookupTime] = t.since(t.dnsDone)
	info[InfoConnectTime] = t.since(t.connDone)
	info[InfoAppConnectTime] = t.since(t.tlsDone)
	info[InfoPreTransferTime] = t.since(t.gotConn)
	info[InfoStartTransferTime] = t.since(t.firstByte)

	info[InfoPrimaryIP] = ""
	info[InfoPrimaryPort] = 0
	if t.remoteAddr != nil {
		if host, port, err := net.SplitHostPort(t.remoteAddr.String()); err == nil {
			info[InfoPrimaryIP] = host
			info[InfoPrimaryPort], _ = strconv.Atoi(port)
		}
	}
}
