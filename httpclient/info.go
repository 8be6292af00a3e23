package httpclient

import (
	"fmt"
	"maps"
	"strconv"
)

// Transfer information keys
const (
	InfoURL               = "url"
	InfoHTTPCode          = "http_code"
	InfoContentType       = "content_type"
	InfoTotalTime         = "total_time"
	InfoNameLookupTime    = "namelookup_time"
	InfoConnectTime       = "connect_time"
	InfoAppConnectTime    = "appconnect_time"
	InfoPreTransferTime   = "pretransfer_time"
	InfoStartTransferTime = "starttransfer_time"
	InfoSizeDownload      = "size_download"
	InfoSizeUpload        = "size_upload"
	InfoHeaderSize        = "header_size"
	InfoPrimaryIP         = "primary_ip"
	InfoPrimaryPort       = "primary_port"
	InfoRedirectURL       = "redirect_url"
)

// Info holds transfer information reported by a transport. Timings are in
// seconds, sizes in bytes.
type Info map[string]any

// Clone returns a shallow copy of i
func (i Info) Clone() Info {
	if i == nil {
		return Info{}
	}
	return maps.Clone(i)
}

// StatusCode returns the HTTP status code, or 0 when none was received
func (i Info) StatusCode() int {
	n, _ := toInt(i[InfoHTTPCode])
	return n
}

// Float returns a numeric entry as float64, or 0 when missing
func (i Info) Float(key string) float64 {
	switch v := i[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		n, ok := toInt(v)
		if !ok {
			return 0
		}
		return float64(n)
	}
}

// String returns an entry as a string, or "" when missing
func (i Info) String(key string) string {
	switch v := i[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
