// Package echoserver runs a disposable HTTP server that echoes requests back
// as JSON. It backs the integration tests of the HTTP client and the CLI.
//
// The behaviour is selected with the "action" query parameter:
//
//	index   JSON with time, method, merged query/form values and headers (default)
//	xml     small XML document with time and method
//	file    JSON summary of multipart file uploads
//	retry   the first "number" calls per "filename" key stall for RetryDelay
//	empty   empty body
//	status  empty body with the status given by "code"
package echoserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// DefaultRetryDelay is how long a stalled retry call blocks
	DefaultRetryDelay = 2 * time.Second

	timeLayout = "2006-01-02 15:04:05"
)

// Server wraps an echo instance served by httptest
type Server struct {
	*httptest.Server

	// RetryDelay is how long the retry action stalls; change before issuing requests
	RetryDelay time.Duration

	mu      sync.Mutex
	retries map[string]int
	hits    int
}

// Response is the JSON document written by the index, retry and file actions
type Response struct {
	Time    string            `json:"time"`
	Method  string            `json:"method"`
	Request map[string]any    `json:"request,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	File    map[string]File   `json:"file,omitempty"`
}

// File describes one uploaded multipart file
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{
		RetryDelay: DefaultRetryDelay,
		retries:    make(map[string]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Any("/*", s.handle)
	s.Server = httptest.NewServer(e)
	return s
}

// Hits returns the number of requests served
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// RetryCount returns how many stalled calls the retry action made for key
func (s *Server) RetryCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries[key]
}

// URLFor builds a URL for action with optional extra query parameters
func (s *Server) URLFor(action string, query ...string) string {
	u := s.URL + "/?action=" + action
	if len(query) > 0 {
		u += "&" + strings.Join(query, "&")
	}
	return u
}

func (s *Server) handle(c echo.Context) error {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()

	switch c.QueryParam("action") {
	case "xml":
		return s.xml(c)
	case "file":
		return s.file(c)
	case "retry":
		return s.retry(c)
	case "empty":
		return c.String(http.StatusOK, "")
	case "status":
		code, err := strconv.Atoi(c.QueryParam("code"))
		if err != nil || code < 100 || code > 599 {
			code = http.StatusBadRequest
		}
		return c.NoContent(code)
	default:
		return s.index(c)
	}
}

func (s *Server) index(c echo.Context) error {
	resp, err := s.describe(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) xml(c echo.Context) error {
	doc := fmt.Sprintf("<xml>\n    <time>%s</time>\n    <method>%s</method>\n</xml>",
		time.Now().Format(timeLayout), c.Request().Method)
	return c.Blob(http.StatusOK, "application/xml; charset=UTF-8", []byte(doc))
}

func (s *Server) file(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	files := make(map[string]File, len(form.File))
	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		h := headers[0]
		files[field] = File{Name: h.Filename, Type: h.Header.Get(echo.HeaderContentType), Size: h.Size}
	}

	fields := make(map[string]any, len(form.Value))
	for key, values := range form.Value {
		fields[key] = collapse(values)
	}

	return c.JSON(http.StatusOK, Response{
		Time:    time.Now().Format(timeLayout),
		Method:  c.Request().Method,
		Request: fields,
		File:    files,
	})
}

func (s *Server) retry(c echo.Context) error {
	number, _ := strconv.Atoi(c.QueryParam("number"))
	key := c.QueryParam("filename")
	if key == "" {
		key = "retry.num"
	}

	s.mu.Lock()
	stall := s.retries[key] < number
	if stall {
		s.retries[key]++
	}
	delay := s.RetryDelay
	s.mu.Unlock()

	if stall {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-time.After(delay):
		}
	}
	return s.index(c)
}

func (s *Server) describe(c echo.Context) (Response, error) {
	req := c.Request()
	resp := Response{
		Time:    time.Now().Format(timeLayout),
		Method:  req.Method,
		Request: make(map[string]any),
		Headers: make(map[string]string, len(req.Header)),
	}

	for name := range req.Header {
		resp.Headers[name] = req.Header.Get(name)
	}
	for key, values := range c.QueryParams() {
		resp.Request[key] = collapse(values)
	}

	contentType := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(contentType, echo.MIMEApplicationJSON):
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return resp, err
		}
		resp.Body = string(body)
		var decoded map[string]any
		if json.Unmarshal(body, &decoded) == nil {
			for k, v := range decoded {
				resp.Request[k] = v
			}
		}
	case strings.HasPrefix(contentType, echo.MIMEMultipartForm),
		strings.HasPrefix(contentType, echo.MIMEApplicationForm):
		form, err := c.FormParams()
		if err != nil {
			return resp, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		for key, values := range form {
			resp.Request[key] = collapse(values)
		}
	default:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return resp, err
		}
		resp.Body = string(body)
	}

	return resp, nil
}

func collapse(values []string) any {
	if len(values) == 1 {
		return values[0]
	}
	return values
}
