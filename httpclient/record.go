package httpclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gaborage/go-curl/logger"
)

// LogRecord is the structured record handed to the log hook after every attempt
type LogRecord struct {
	RequestTime     string         `json:"request_time"`
	RequestMethod   string         `json:"request_method"`
	Proto           string         `json:"proto"`
	ServerName      string         `json:"server_name"`
	RequestURI      string         `json:"request_uri"`
	RequestIP       string         `json:"request_ip"`
	RequestQuery    map[string]any `json:"request_query"`
	RequestHeader   AccessMap      `json:"request_header"`
	RequestBody     any            `json:"request_body"`
	HostName        string         `json:"host_name"`
	HTTPStatus      int            `json:"http_status"`
	HTTPUserAgent   string         `json:"http_user_agent"`
	RequestDuration float64        `json:"request_duration"`
	ResponseTime    string         `json:"response_time"`
	ResponseHeader  AccessMap      `json:"response_header"`
	ResponseBody    string         `json:"response_body"`
	HTTPError       string         `json:"http_error,omitempty"`
	HTTPErrorDesc   string         `json:"http_error_desc,omitempty"`
}

// LoggerFunc receives one LogRecord per attempt
type LoggerFunc func(LogRecord)

// Fields flattens the record into a map keyed by its JSON names. The error
// keys are present only when the attempt failed.
func (r LogRecord) Fields() map[string]any {
	fields := map[string]any{
		"request_time":     r.RequestTime,
		"request_method":   r.RequestMethod,
		"proto":            r.Proto,
		"server_name":      r.ServerName,
		"request_uri":      r.RequestURI,
		"request_ip":       r.RequestIP,
		"request_query":    r.RequestQuery,
		"request_header":   r.RequestHeader.Map(),
		"request_body":     r.RequestBody,
		"host_name":        r.HostName,
		"http_status":      r.HTTPStatus,
		"http_user_agent":  r.HTTPUserAgent,
		"request_duration": r.RequestDuration,
		"response_time":    r.ResponseTime,
		"response_header":  r.ResponseHeader.Map(),
		"response_body":    r.ResponseBody,
	}
	if r.HTTPError != "" {
		fields["http_error"] = r.HTTPError
		fields["http_error_desc"] = r.HTTPErrorDesc
	}
	return fields
}

// NewLoggerHook returns a LoggerFunc writing each record as an info event on l,
// or an error event when the attempt failed. Sensitive headers are masked by
// the logger's filter.
func NewLoggerHook(l logger.Logger) LoggerFunc {
	return func(r LogRecord) {
		event := l.Info()
		if r.HTTPError != "" {
			event = l.Error()
		}
		for key, value := range r.Fields() {
			event = event.Interface(key, value)
		}
		event.Msg("HTTP client request")
	}
}

func (c *Client) writeLog(start time.Time, elapsed time.Duration) {
	if c.loggerFunc == nil {
		return
	}
	c.loggerFunc(c.buildRecord(start, elapsed))
}

func (c *Client) buildRecord(start time.Time, elapsed time.Duration) LogRecord {
	r := LogRecord{
		RequestTime:     start.Format(time.DateTime),
		RequestMethod:   c.method,
		Proto:           "http",
		ServerName:      c.url,
		RequestURI:      c.url,
		RequestIP:       c.env.ClientIP(),
		RequestHeader:   ToAccessMap(c.headers),
		RequestBody:     c.requestData,
		HostName:        c.env.Hostname(),
		HTTPStatus:      c.state.Info.StatusCode(),
		HTTPUserAgent:   c.env.UserAgent(),
		RequestDuration: elapsed.Seconds(),
		ResponseTime:    time.Now().Format(time.DateTime),
		ResponseHeader:  ToAccessMap(c.state.ResponseHeaders),
		ResponseBody:    c.state.Body,
	}

	if u, err := url.Parse(c.url); err == nil {
		if u.Scheme != "" {
			r.Proto = u.Scheme
		}
		if u.Host != "" {
			r.ServerName = u.Host
		}
		if u.Path != "" {
			r.RequestURI = u.Path
		}
		r.RequestQuery = queryMap(u.Query())
	}

	if c.state.ErrorCode != 0 {
		r.HTTPError = fmt.Sprintf("curl error: %d", c.state.ErrorCode)
		r.HTTPErrorDesc = c.state.ErrorMessage
	}
	return r
}

// queryMap collapses single-valued parameters to strings
func queryMap(values url.Values) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		out[k] = v
	}
	return out
}
